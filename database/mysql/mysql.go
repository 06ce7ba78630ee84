package mysql

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

// Times are stored and read as UTC so date comparisons agree across hosts.
const dsnTemplate = "%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC"

func dsn(c Connection) string {
	return fmt.Sprintf(dsnTemplate,
		c.Username,
		c.Password,
		c.Host,
		c.Port,
		c.DBName,
	)
}

// NewMySQLDB create the mysql master/slaves cluster
func NewMySQLDB(cfg Config) (*gorm.DB, error) {
	masterDSN := dsn(cfg.Master)
	var slaveDSNs []gorm.Dialector
	for _, slave := range cfg.Slaves {
		slaveDSNs = append(slaveDSNs, mysql.Open(dsn(slave)))
	}

	db, err := gorm.Open(mysql.Open(masterDSN), GormConfig(cfg.LogLevel))
	if err != nil {
		return nil, errors.Wrap(err, "open master mysql")
	}

	dbResolverCfg := dbresolver.Config{
		Sources:  []gorm.Dialector{mysql.Open(masterDSN)},
		Replicas: slaveDSNs,
		Policy:   dbresolver.RandomPolicy{}}
	if err := db.Use(dbresolver.Register(dbResolverCfg).
		SetConnMaxIdleTime(time.Hour).
		SetConnMaxLifetime(24 * time.Hour).
		SetMaxIdleConns(cfg.ConnCfg.MaxIdleConns).
		SetMaxOpenConns(cfg.ConnCfg.MaxOpenConns),
	); err != nil {
		return nil, err
	}

	return db, nil
}

// GormConfig returns the gorm settings shared by every dialect. Driver
// errors are translated so duplicate keys surface as gorm.ErrDuplicatedKey.
func GormConfig(logLevel int) *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logger.LogLevel(logLevel)),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}
