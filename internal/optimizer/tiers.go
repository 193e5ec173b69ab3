package optimizer

// ComplexityTier buckets agent types by spawn cost so that similar types
// are batched together.
type ComplexityTier string

const (
	TierLow    ComplexityTier = "low"
	TierMedium ComplexityTier = "medium"
	TierHigh   ComplexityTier = "high"
)

var tierByAgentType = map[string]ComplexityTier{
	"documenter": TierLow,
	"formatter":  TierLow,
	"monitor":    TierLow,

	"coder":    TierMedium,
	"tester":   TierMedium,
	"reviewer": TierMedium,

	"architect":  TierHigh,
	"researcher": TierHigh,
	"analyst":    TierHigh,
}

// TierForAgentType returns the complexity tier for an agent type. Unknown
// types are treated as medium.
func TierForAgentType(agentType string) ComplexityTier {
	if tier, ok := tierByAgentType[agentType]; ok {
		return tier
	}
	return TierMedium
}

// GroupByTier partitions agent types into complexity tiers, preserving
// input order within each tier.
func GroupByTier(agentTypes []string) map[ComplexityTier][]string {
	groups := make(map[ComplexityTier][]string)
	for _, at := range agentTypes {
		tier := TierForAgentType(at)
		groups[tier] = append(groups[tier], at)
	}
	return groups
}
