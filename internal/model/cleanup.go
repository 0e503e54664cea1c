package model

// PostImages and ReplyImages project the raw images column so a malformed
// value can be skipped per row instead of failing the whole query.
type PostImages struct {
	ID     string
	Images string
}

type ReplyImages struct {
	ID     string
	PostID string
	Images string
}

// CleanupCandidate is a post selected for removal together with its replies.
type CleanupCandidate struct {
	Post    PostImages
	Replies []ReplyImages
}

// ImageRef is a raw images column still referenced by live data, tagged with
// the post it belongs to (the reply's post for reply rows).
type ImageRef struct {
	PostID string
	Images string
}
