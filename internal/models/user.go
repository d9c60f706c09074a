package models

import "time"

// User is a registered account. Posts copy a few of these fields at creation time.
type User struct {
	ID            string    `bson:"-" json:"_id"`
	FirstName     string    `bson:"firstName" json:"firstName"`
	LastName      string    `bson:"lastName" json:"lastName"`
	Email         string    `bson:"email" json:"email"`
	PasswordHash  string    `bson:"password" json:"-"`
	PicturePath   string    `bson:"picturePath" json:"picturePath"`
	Friends       []string  `bson:"friends" json:"friends"`
	Location      string    `bson:"location" json:"location"`
	Occupation    string    `bson:"occupation" json:"occupation"`
	ViewedProfile int       `bson:"viewedProfile" json:"viewedProfile"`
	Impressions   int       `bson:"impressions" json:"impressions"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt" json:"updatedAt"`
}
