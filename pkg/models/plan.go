package models

// UserTier represents the user subscription tier
type UserTier string

const (
	TierFree  UserTier = "free"
	TierPro   UserTier = "pro"
	TierPower UserTier = "power"
)

// Plan represents one entry of the pricing page. Billing here is display
// only; upgrades happen through an external checkout.
type Plan struct {
	ID          string   `json:"id"`
	Tier        UserTier `json:"tier"`
	DisplayName string   `json:"display_name"`
	PriceCents  int      `json:"price_cents"`
	Currency    string   `json:"currency"`
	Features    []string `json:"features"`
}

// PlanCatalog is the compiled-in plan list shown on the billing page.
var PlanCatalog = []Plan{
	{
		ID:          "starter",
		Tier:        TierFree,
		DisplayName: "Starter",
		PriceCents:  0,
		Currency:    "USD",
		Features:    []string{"Up to 50 leads", "Kanban pipeline", "CSV import/export"},
	},
	{
		ID:          "pro-workspace",
		Tier:        TierPro,
		DisplayName: "Pro Workspace",
		PriceCents:  1900,
		Currency:    "USD",
		Features:    []string{"Unlimited leads", "Timeline & calendar", "Realtime sync", "Priority support"},
	},
	{
		ID:          "enterprise",
		Tier:        TierPower,
		DisplayName: "Enterprise",
		PriceCents:  4900,
		Currency:    "USD",
		Features:    []string{"Everything in Pro", "SSO", "Dedicated success manager"},
	},
}

// TierDisplayName maps an account tier to the plan label shown next to the
// user's initials.
func TierDisplayName(tier string) string {
	for _, p := range PlanCatalog {
		if string(p.Tier) == tier {
			return p.DisplayName
		}
	}
	return PlanCatalog[0].DisplayName
}
