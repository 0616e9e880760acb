package config

import (
    "os"
    "strconv"
)

// Policy groups the venue's booking policy knobs.  These are product
// parameters, not structural invariants: operations can retune them
// through the environment without a code change.  Defaults reflect the
// current house rules.
type Policy struct {
    StandardQuota int // tables per day for STANDARD customers
    VIPQuota      int // tables per day for GOLD and PLATINUM customers

    CombinationMinParty int // party size at which table combinations are offered

    FullRefundHours int // hours before the event for a full deposit refund
    HalfRefundHours int // hours before the event for a half refund

    // Risk score weights.  They must sum to 1.0 and the no-show
    // weight must not fall below the cancellation weight, or the
    // score stops being monotone in no-shows; LoadPolicy falls back
    // to the defaults when an override breaks either rule.
    RiskNoShowWeight   float64
    RiskCancelWeight   float64
    RiskRecencyWeight  float64

    MaxReferenceAttempts int // redraw budget for reference/check-in-code minting
    MaxOverrideTables    int // ceiling on additionalTables for an admin override
}

// LoadPolicy reads policy overrides from the environment on top of the
// house defaults.
func LoadPolicy() Policy {
    p := Policy{
        StandardQuota:        envInt("POLICY_STANDARD_QUOTA", 2),
        VIPQuota:             envInt("POLICY_VIP_QUOTA", 3),
        CombinationMinParty:  envInt("POLICY_COMBINATION_MIN_PARTY", 7),
        FullRefundHours:      envInt("POLICY_FULL_REFUND_HOURS", 48),
        HalfRefundHours:      envInt("POLICY_HALF_REFUND_HOURS", 24),
        RiskNoShowWeight:     envFloat("POLICY_RISK_NOSHOW_WEIGHT", 0.5),
        RiskCancelWeight:     envFloat("POLICY_RISK_CANCEL_WEIGHT", 0.3),
        RiskRecencyWeight:    envFloat("POLICY_RISK_RECENCY_WEIGHT", 0.2),
        MaxReferenceAttempts: envInt("POLICY_MAX_REFERENCE_ATTEMPTS", 5),
        MaxOverrideTables:    envInt("POLICY_MAX_OVERRIDE_TABLES", 3),
    }
    sum := p.RiskNoShowWeight + p.RiskCancelWeight + p.RiskRecencyWeight
    if sum < 0.999 || sum > 1.001 || p.RiskNoShowWeight < p.RiskCancelWeight {
        p.RiskNoShowWeight, p.RiskCancelWeight, p.RiskRecencyWeight = 0.5, 0.3, 0.2
    }
    if p.HalfRefundHours >= p.FullRefundHours { p.FullRefundHours, p.HalfRefundHours = 48, 24 }
    if p.StandardQuota < 1 { p.StandardQuota = 2 }
    if p.VIPQuota < p.StandardQuota { p.VIPQuota = p.StandardQuota + 1 }
    return p
}

// Quota returns the daily table quota for a loyalty tier.  Unknown
// tiers get the standard quota.
func (p Policy) Quota(tier string) int {
    switch tier {
    case "GOLD", "PLATINUM":
        return p.VIPQuota
    default:
        return p.StandardQuota
    }
}

func envFloat(k string, d float64) float64 {
    v := os.Getenv(k); if v == "" { return d }
    if f, err := strconv.ParseFloat(v, 64); err == nil { return f }
    return d
}
