package model

type PublishRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Tags        []string   `json:"tags"`
	Visibility  Visibility `json:"visibility"`
}

// VideoMetadata is what the publishing API receives alongside the bytes.
type VideoMetadata struct {
	Title       string
	Description string
	Tags        []string
	Visibility  Visibility
}

type PublishResult struct {
	AssetID       string `json:"assetId"`
	RemoteAssetID string `json:"remoteAssetId"`
}

// Notification is delivered to the client context that started a grant or
// publish. Exactly one of RemoteAssetID/Error is meaningful per Kind.
type Notification struct {
	Kind          NotificationKind `json:"kind"`
	AssetID       string           `json:"assetId,omitempty"`
	RemoteAssetID string           `json:"remoteAssetId,omitempty"`
	Error         string           `json:"error,omitempty"`
	Retryable     bool             `json:"retryable,omitempty"`
}
