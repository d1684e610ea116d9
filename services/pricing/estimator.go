package pricing

// EstimateFromChecklist produces an upfront estimate for a checklist-scoped
// job: half the base price covers the visit itself, and the other half is
// spread evenly across the checklist, accruing per checked item.
func EstimateFromChecklist(basePrice float64, checklist map[string]bool) float64 {
	if len(checklist) == 0 {
		return basePrice
	}
	checked := 0
	for _, on := range checklist {
		if on {
			checked++
		}
	}
	perItem := (basePrice * 0.5) / float64(len(checklist))
	return basePrice*0.5 + perItem*float64(checked)
}
