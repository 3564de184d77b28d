package dto

type SubmitRatingRequest struct {
	Stars int `json:"stars" binding:"required,min=1,max=5"`
}

// RatingSummaryResponse mirrors the material's derived rating state after a
// submission, plus the caller's own current stars.
type RatingSummaryResponse struct {
	Average    float64 `json:"average"`
	Count      int     `json:"count"`
	Breakdown  [5]int  `json:"breakdown"`
	UserRating int     `json:"user_rating"`
}

// RatingBroadcast is the room payload for rating updates. The room is shared
// by every viewer of the material, so it carries no per-caller fields.
type RatingBroadcast struct {
	Average   float64 `json:"average"`
	Count     int     `json:"count"`
	Breakdown [5]int  `json:"breakdown"`
}
