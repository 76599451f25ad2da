package types

import "github.com/google/uuid"

type GenreRanking struct {
	RunID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	UserID        int       `gorm:"column:user_id;primaryKey;autoIncrement:false" json:"user_id"`
	Genre         string    `gorm:"column:genre;primaryKey" json:"genre"`
	Rank          int       `gorm:"column:rank;not null" json:"rank"`
	TotalRatings  int       `gorm:"column:total_ratings;not null" json:"total_ratings"`
	AverageRating float64   `gorm:"column:average_rating;not null" json:"average_rating"`
}

func (GenreRanking) TableName() string { return "genre_ranking" }
