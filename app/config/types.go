package config

// FeedConfig describes a single tracked feed, loaded from a YAML file in
// the feeds directory. The feed identifier is derived from the filename.
type FeedConfig struct {
	Name       string   // Derived from filename (without extension)
	URL        string   `yaml:"url"`
	Categories []string `yaml:"categories"`
	Settings   Settings `yaml:"settings"`
	Filters    []Filter `yaml:"filters"`
}

type Settings struct {
	Enabled        bool `yaml:"enabled"`
	UpdateInterval int  `yaml:"update_interval"` // seconds
	KeepHistory    bool `yaml:"keep_history"`
	Timeout        int  `yaml:"timeout"` // seconds
	ExtractContent bool `yaml:"extract_content"`
	WebSub         bool `yaml:"websub"` // attempt hub discovery and subscription
}

type Filter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}
