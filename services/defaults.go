package services

import (
	"food-market/config"
	"food-market/models"
)

// Platform-wide defaults, set once from config at process start. Not mutated
// afterwards.
var (
	defaultPolicyCode  string
	platformCommission models.CommissionConfig
)

// SetPlatformDefaults injects the platform default cancellation policy code
// and commission terms. Call once from main before serving.
func SetPlatformDefaults(cancellation config.CancellationConfig, commission config.CommissionDefaults) {
	defaultPolicyCode = cancellation.DefaultPolicyCode
	platformCommission = models.CommissionConfig{
		Type:                  commission.Type,
		Percent:               commission.Percent,
		FixedValue:            commission.FixedValue,
		PayoutCadenceDays:     commission.PayoutCadenceDays,
		IncludeDelivery:       commission.IncludeDelivery,
		MerchantAbsorbsExtras: true,
	}
	if platformCommission.Type != CommissionTypeFixed {
		platformCommission.Type = CommissionTypePercentage
	}
	if platformCommission.PayoutCadenceDays <= 0 {
		platformCommission.PayoutCadenceDays = 7
	}
}
