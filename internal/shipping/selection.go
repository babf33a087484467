package shipping

// Selection tracks the shopper's chosen rate across rate refreshes. The
// first non-empty refresh auto-selects (free rate first, else the first
// rate); after that only an explicit Choose or the disappearance of the
// chosen rate changes the selection.
type Selection struct {
	selectedID   string
	autoSelected bool
}

// Refresh applies a freshly loaded rate list and returns the selected id.
func (s *Selection) Refresh(rates []Rate) string {
	if s.selectedID != "" && !containsRate(rates, s.selectedID) {
		s.selectedID = ""
	}
	if s.selectedID == "" && !s.autoSelected && len(rates) > 0 {
		s.selectedID = defaultRate(rates).ID
		s.autoSelected = true
	}
	return s.selectedID
}

// Choose records a manual selection. Unknown ids are ignored.
func (s *Selection) Choose(rates []Rate, id string) bool {
	if !containsRate(rates, id) {
		return false
	}
	s.selectedID = id
	return true
}

// Selected returns the current rate id, empty when nothing is selected.
func (s *Selection) Selected() string {
	return s.selectedID
}

func defaultRate(rates []Rate) Rate {
	for _, r := range rates {
		if r.IsFree() {
			return r
		}
	}
	return rates[0]
}

func containsRate(rates []Rate, id string) bool {
	for _, r := range rates {
		if r.ID == id {
			return true
		}
	}
	return false
}
