package listener

import (
	"go.uber.org/zap"
)

// maybeAlertWhale logs a single-buy USD value above the configured
// threshold. It never gates the signal engine, it only surfaces a swap
// worth a human glancing at.
func maybeAlertWhale(logger *zap.Logger, thresholdUSD float64, token, buyer string, usdValue float64) {
	if thresholdUSD <= 0 || usdValue < thresholdUSD {
		return
	}
	logger.Info("whale buy",
		zap.String("token", token),
		zap.String("buyer", buyer),
		zap.Float64("usd_value", usdValue),
	)
}
