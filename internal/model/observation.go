package model

// MaxContentChars bounds the stored content of an observation (in characters)
const MaxContentChars = 1000

// Observation is one recorded, labeled tab
type Observation struct {
	Title     string   `json:"title"`
	URL       string   `json:"url"`
	Content   string   `json:"content"`
	Category  Category `json:"category"`
	Timestamp string   `json:"timestamp"` // ISO-8601
}

// ObservationUpdate lists the fields of an Observation that may be changed
// after ingestion. Nil fields are left untouched.
type ObservationUpdate struct {
	Title    *string   `json:"title,omitempty"`
	URL      *string   `json:"url,omitempty"`
	Content  *string   `json:"content,omitempty"`
	Category *Category `json:"category,omitempty"`
}

// Empty reports whether the update changes nothing
func (u ObservationUpdate) Empty() bool {
	return u.Title == nil && u.URL == nil && u.Content == nil && u.Category == nil
}

// Apply merges the set fields of u into o
func (u ObservationUpdate) Apply(o *Observation) {
	if u.Title != nil {
		o.Title = *u.Title
	}
	if u.URL != nil {
		o.URL = *u.URL
	}
	if u.Content != nil {
		o.Content = *u.Content
	}
	if u.Category != nil {
		o.Category = *u.Category
	}
}

// TrainingExample is an observation projected into a text/label pair
type TrainingExample struct {
	Text  string   `json:"text"`
	Label Category `json:"label"`
}

// Statistics summarizes the labeled dataset
type Statistics struct {
	Total        int              `json:"total"`
	Categories   map[Category]int `json:"categories"`
	LatestUpdate *string          `json:"latest_update"` // null when the dataset is empty
}
