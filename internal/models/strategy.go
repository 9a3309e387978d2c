package models

// Strategy is the planner's output after analyzing a product description.
// Any field may be empty; the supervisor tolerates partial strategies by
// skipping the affected worker or falling back.
type Strategy struct {
	ProductCategory  string   `json:"product_category"`
	TargetTitles     []string `json:"target_titles"`
	CommunityQueries []string `json:"community_queries"`
	NewsFocus        string   `json:"news_focus"`
	Competitors      []string `json:"competitors"`
}

// Size returns a rough measure of how much work the strategy describes,
// used for the planning thought event.
func (s *Strategy) Size() int {
	n := len(s.CommunityQueries) + len(s.Competitors) + len(s.TargetTitles)
	if s.NewsFocus != "" {
		n++
	}
	return n
}

// IsEmpty reports whether the strategy drives no worker at all.
func (s *Strategy) IsEmpty() bool {
	return len(s.CommunityQueries) == 0 && len(s.Competitors) == 0 && s.NewsFocus == ""
}

// StrategyTag identifies one compensation strategy choice.
type StrategyTag string

const (
	TagNews       StrategyTag = "news"
	TagCompetitor StrategyTag = "competitor"
	TagCommunity  StrategyTag = "community"
)

// ValidTag reports whether the planner returned a known strategy tag.
func ValidTag(tag StrategyTag) bool {
	switch tag {
	case TagNews, TagCompetitor, TagCommunity:
		return true
	}
	return false
}
