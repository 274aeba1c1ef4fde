package model

// Coordinates locate a spot on the map.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Era is one historical period of a spot. WanPrompt is the base
// text-to-video prompt for that period; VideoURL is the published clip URL
// once one exists (nil until then).
type Era struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	YearStart   int     `json:"yearStart"`
	YearEnd     *int    `json:"yearEnd"`
	Description string  `json:"description"`
	WanPrompt   string  `json:"wanPrompt"`
	VideoURL    *string `json:"videoUrl"`
	Icon        string  `json:"icon,omitempty"`
}

type Spot struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Coordinates Coordinates `json:"coordinates"`
	ImageURL    string      `json:"imageUrl,omitempty"`
	Category    string      `json:"category,omitempty"`
	Eras        []Era       `json:"eras"`
}

type SpotsData struct {
	Spots []Spot `json:"spots"`
}

// VideoMetadataEntry is the durable per-(spot, era) generation record.
// JSON field names mirror the on-disk document shared with sibling
// processes, so they must not change.
type VideoMetadataEntry struct {
	SpotID      string `json:"spotId"`
	EraID       string `json:"eraId"`
	Prompt      string `json:"prompt"`
	LocalPath   string `json:"localPath"`
	Status      string `json:"status"`
	CreatedAt   string `json:"createdAt"`
	CompletedAt string `json:"completedAt,omitempty"`
	Error       string `json:"error,omitempty"`
	TaskID      string `json:"taskId,omitempty"`
	R2URL       string `json:"r2Url,omitempty"`
}

// VideoMetadataDocument is the metadata document exactly as persisted.
type VideoMetadataDocument struct {
	Videos []VideoMetadataEntry `json:"videos"`
}
