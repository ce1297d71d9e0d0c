package youtube

// Video is the videos resource subset this tool reads and writes:
// the snippet and status parts of videos.insert and videos.update.
type Video struct {
	ID      string   `json:"id,omitempty"`
	Snippet *Snippet `json:"snippet,omitempty"`
	Status  *Status  `json:"status,omitempty"`
}

// Snippet holds the descriptive metadata for a video.
type Snippet struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Tags        []string   `json:"tags,omitempty"`
	CategoryID  string     `json:"categoryId,omitempty"`
	Localized   *Localized `json:"localized,omitempty"`
}

// Localized is the default-language title and description.
type Localized struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Status holds the privacy and audience settings.
type Status struct {
	PrivacyStatus           string `json:"privacyStatus"`
	SelfDeclaredMadeForKids bool   `json:"selfDeclaredMadeForKids"`
}

// DefaultCategoryID is "People & Blogs", applied when the manifest does not
// say otherwise.
const DefaultCategoryID = "22"
