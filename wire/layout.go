package wire

// DepositPayload encodes [cid:string][size:u32][duration:u32].
func DepositPayload(cid string, sizeBytes, durationDays uint64) ([]byte, error) {
	return Encode(
		String("cid", cid),
		U32("size", sizeBytes),
		U32("duration", durationDays),
	)
}

// RenewalPayload encodes [duration:u32]. The deposit account already
// identifies the content, so the cid is not repeated.
func RenewalPayload(additionalDays uint64) ([]byte, error) {
	return Encode(U32("duration", additionalDays))
}

// InitializeConfigPayload encodes
// [admin:fixed32][rate:u64][min_duration:u32][withdrawal:fixed32].
func InitializeConfigPayload(
	admin []byte,
	rateSubunits uint64,
	minDurationDays uint64,
	withdrawal []byte,
) ([]byte, error) {
	return Encode(
		FixedBytes32("admin", admin),
		U64("rate", rateSubunits),
		U32("min_duration", minDurationDays),
		FixedBytes32("withdrawal", withdrawal),
	)
}
