package post

import "time"

// Post is a user-authored entry. The author fields are copied from the user
// when the post is created and are not kept in sync afterwards.
type Post struct {
	ID              string          `json:"_id" bson:"-"`
	UserID          string          `json:"userId" bson:"userId"`
	FirstName       string          `json:"firstName" bson:"firstName"`
	LastName        string          `json:"lastName" bson:"lastName"`
	Location        string          `json:"location" bson:"location"`
	Description     string          `json:"description" bson:"description"`
	PicturePath     string          `json:"picturePath" bson:"picturePath"`
	UserPicturePath string          `json:"userPicturePath" bson:"userPicturePath"`
	Likes           map[string]bool `json:"likes" bson:"likes"`
	Comments        []string        `json:"comments" bson:"comments"`
	CreatedAt       time.Time       `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt" bson:"updatedAt"`
}

// Liked reports whether userID currently likes the post.
func (p *Post) Liked(userID string) bool {
	return p.Likes[userID]
}

// Normalize guarantees likes and comments serialise as {} and [] rather than null.
func (p *Post) Normalize() {
	if p.Likes == nil {
		p.Likes = map[string]bool{}
	}
	if p.Comments == nil {
		p.Comments = []string{}
	}
}
