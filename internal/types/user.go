package types

// User is one row of u.user. The zip code column is not kept.
type User struct {
	ID         int    `json:"id"`
	Age        int    `json:"age"`
	Gender     string `json:"gender"`
	Occupation string `json:"occupation"`
}

// FeatureVector is the encoded form of a User used for clustering.
type FeatureVector struct {
	UserID int       `json:"user_id"`
	Vector []float64 `json:"vector"`
}
