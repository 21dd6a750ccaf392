package processor

import (
	"fmt"

	"github.com/danilovkiri/dk-go-refill/internal/models/modeldto"
	"github.com/shopspring/decimal"
)

var (
	steamRate   = decimal.RequireFromString("0.90")
	defaultRate = decimal.RequireFromString("0.92")
)

// Discount returns the amount credited to the account: 10% off for Steam, 8% off otherwise.
func Discount(platform string, amount decimal.Decimal) decimal.Decimal {
	rate := defaultRate
	if platform == modeldto.PlatformSteam {
		rate = steamRate
	}
	return amount.Mul(rate).Round(2)
}

// OrderMessage renders the operators chat notification of a new order.
func OrderMessage(platform, accountID string, discounted decimal.Decimal) string {
	userIDText := fmt.Sprintf("🆔 Pubg UID: %s", accountID)
	if platform == modeldto.PlatformSteam {
		userIDText = fmt.Sprintf("🆔 Login Steam: %s", accountID)
	}
	return fmt.Sprintf("✅ Новый заказ:\n🎮 Платформа: %s\n%s\n💵 Сумма: %s", platform, userIDText, discounted.StringFixed(2))
}
