package handler

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var registerOnce sync.Once

// registerValidators adds the "objectid" tag to gin's validator.
func registerValidators() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
				return primitive.IsValidObjectID(fl.Field().String())
			})
		}
	})
}

type createPostRequest struct {
	UserID      string `json:"userId" binding:"required,objectid"`
	Description string `json:"description" binding:"required,max=5000"`
	PicturePath string `json:"picturePath" binding:"max=1024"`
}

type likePostRequest struct {
	UserID string `json:"userId" binding:"required,objectid"`
}

type postIDParam struct {
	ID string `uri:"id" binding:"required,objectid"`
}

type userIDParam struct {
	UserID string `uri:"userId" binding:"required,objectid"`
}

var jsonNames = map[string]string{
	"ID":          "id",
	"UserID":      "userId",
	"Description": "description",
	"PicturePath": "picturePath",
}

// bindingMessage turns validator output into a single readable line.
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field, ok := jsonNames[fe.Field()]
		if !ok {
			field = strings.ToLower(fe.Field())
		}
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "objectid":
			parts = append(parts, field+" must be a valid id")
		case "max":
			parts = append(parts, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		default:
			parts = append(parts, field+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}
