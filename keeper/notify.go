package keeper

import (
	"context"
	"strings"

	"github.com/photon-storage/go-common/log"

	"github.com/photon-storage/photon-settlement/database/orm"
)

// LogNotifier writes expiry notices to the log. It stands in where no
// mail delivery is configured.
type LogNotifier struct{}

// NotifyExpiring implements Notifier.
func (LogNotifier) NotifyExpiring(_ context.Context, email string, uploads []*orm.Upload) error {
	cids := make([]string, len(uploads))
	for i, u := range uploads {
		cids[i] = u.ContentCID
	}

	log.Info("uploads expiring soon",
		"email", email,
		"count", len(uploads),
		"cids", strings.Join(cids, ","),
	)
	return nil
}

// LogRemover records removals without contacting a storage provider.
type LogRemover struct{}

// Remove implements ContentRemover.
func (LogRemover) Remove(_ context.Context, cid string) error {
	log.Info("content removal requested", "cid", cid)
	return nil
}
