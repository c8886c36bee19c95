package detector

import "momentumsentry/clock"

// effective bundles the session parameters after historical-stats
// adjustment.
type effective struct {
	SessionParams
	Liquidity float64
}

// resolveEffective applies the historical-stats adjustment to the base
// session parameters: effective volume threshold becomes
// max(vol_base, avg_volume_20d*m), pct_early is raised to cover the
// 20-day average range when that implies a wider early threshold, and a
// liquidity score gates out illiquid symbols entirely.
func resolveEffective(base SessionParams, session clock.Session, hist *HistoricalStats, openPrice float64) effective {
	eff := effective{SessionParams: base, Liquidity: 0.5}

	if hist == nil {
		return eff
	}

	eff.Liquidity = minF(1, hist.AvgVolume20d/1_000_000)

	if hist.AvgVolume20d > 0 {
		m := histVolumeMultiplier(session)
		eff.VolBase = maxF(base.VolBase, hist.AvgVolume20d*m)
	}

	if hist.AvgRange20d > 0 && openPrice > 0 {
		impliedEarly := (hist.AvgRange20d / openPrice) * 1.2
		eff.PctEarly = maxF(base.PctEarly, impliedEarly)
	}

	return eff
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
