package domain

// GuidanceEntry is a hand-authored, multi-step answer template for one legal
// topic. The table is loaded once at process start and never mutated.
type GuidanceEntry struct {
	Topic        string       `yaml:"topic" json:"topic"`
	Keywords     []string     `yaml:"keywords" json:"-"`
	Description  string       `yaml:"description" json:"description"`
	Forms        []GuidedForm `yaml:"forms" json:"forms"`
	Requirements []string     `yaml:"requirements" json:"requirements"`
	Steps        []string     `yaml:"steps" json:"steps"`
	Links        []Link       `yaml:"links" json:"links"`
}

// GuidedForm is a form reference inside a guidance entry.
type GuidedForm struct {
	Code    string `yaml:"code" json:"code"`
	Name    string `yaml:"name" json:"name"`
	Purpose string `yaml:"purpose" json:"purpose"`
	URL     string `yaml:"url,omitempty" json:"url,omitempty"`
}

// Link is a self-help resource reference.
type Link struct {
	Text string `yaml:"text" json:"text"`
	URL  string `yaml:"url" json:"url"`
}
