package search

// Criteria bundles the optional exact-match filters and the semantic
// search flag for one search call. Callers must reject criteria with no
// field set before invoking the engine.
type Criteria struct {
	UserID            string
	TaskID            string
	Name              string
	Description       string
	Status            string
	Date              string
	DateFrom          string
	DateTo            string
	UseSemanticSearch bool
}

// Empty reports whether no filter field is set.
func (c Criteria) Empty() bool {
	return c.UserID == "" && c.TaskID == "" && c.Name == "" &&
		c.Description == "" && c.Status == "" && c.Date == "" &&
		c.DateFrom == "" && c.DateTo == ""
}
