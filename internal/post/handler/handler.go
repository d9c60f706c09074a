package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sociopedia/sociopedia/server/internal/config"
	"github.com/sociopedia/sociopedia/server/internal/post/service"
	"github.com/sociopedia/sociopedia/server/pkg/logger"
	"github.com/sociopedia/sociopedia/server/pkg/middleware"
)

const requestKey = "postRequest"

// Options configures the pipeline in front of the post operations.
type Options struct {
	// Verifier enables the authorization stage on mutating routes. Nil leaves them open.
	Verifier middleware.Verifier
	// Timeout bounds every store call made for one request.
	Timeout time.Duration
	// MaxBodyBytes caps JSON bodies; 0 means no cap.
	MaxBodyBytes int64
	// Limiter runs on mutating routes after authorization, so it can key on the caller.
	Limiter gin.HandlerFunc
	// Posts carries the compatibility switches. LikeIsNoop drops the like body,
	// UnfilteredUserPosts accepts any user path segment.
	Posts config.PostsConfig
}

type postHandler struct {
	svc     service.Service
	timeout time.Duration
}

// RegisterPostRoutes mounts the post resource on r. Mutating routes run
// validation, then authorization when enabled, then the operation.
func RegisterPostRoutes(r gin.IRouter, svc service.Service, opts Options) {
	registerValidators()
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	h := &postHandler{svc: svc, timeout: opts.Timeout}

	create := []gin.HandlerFunc{bindBody[createPostRequest](opts.MaxBodyBytes)}
	like := []gin.HandlerFunc{bindURI[postIDParam]()}
	if !opts.Posts.LikeIsNoop {
		like = append(like, bindBody[likePostRequest](opts.MaxBodyBytes))
	}
	if opts.Verifier != nil {
		create = append(create, middleware.AuthMiddleware(opts.Verifier), middleware.RequireSubject(func(c *gin.Context) string {
			return mustGet[createPostRequest](c).UserID
		}))
		like = append(like, middleware.AuthMiddleware(opts.Verifier))
		if !opts.Posts.LikeIsNoop {
			like = append(like, middleware.RequireSubject(func(c *gin.Context) string {
				return mustGet[likePostRequest](c).UserID
			}))
		}
	}
	if opts.Limiter != nil {
		create = append(create, opts.Limiter)
		like = append(like, opts.Limiter)
	}

	var userPosts []gin.HandlerFunc
	if !opts.Posts.UnfilteredUserPosts {
		userPosts = append(userPosts, bindURI[userIDParam]())
	}
	userPosts = append(userPosts, h.getUserPosts)

	posts := r.Group("/posts")
	posts.POST("", append(create, h.createPost)...)
	posts.GET("", h.getFeedPosts)
	posts.GET("/feed", h.getFeedPosts)
	posts.GET("/:userId", userPosts...)
	posts.GET("/:userId/posts", userPosts...)
	posts.PATCH("/:id/like", append(like, h.likePost)...)
}

func (h *postHandler) ctx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

func (h *postHandler) createPost(c *gin.Context) {
	req := mustGet[createPostRequest](c)
	ctx, cancel := h.ctx(c)
	defer cancel()

	res, err := h.svc.CreatePost(ctx, service.CreateInput{
		UserID:      req.UserID,
		Description: req.Description,
		PicturePath: req.PicturePath,
	})
	if err != nil {
		status := http.StatusConflict
		if errors.Is(err, service.ErrUserNotFound) {
			status = http.StatusNotFound
		}
		logger.Warnf("create post for %s: %v", req.UserID, err)
		c.JSON(status, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, res.Body())
}

func (h *postHandler) getFeedPosts(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()
	list, err := h.svc.GetFeedPosts(ctx)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *postHandler) getUserPosts(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()
	list, err := h.svc.GetUserPosts(ctx, c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *postHandler) likePost(c *gin.Context) {
	p := mustGet[postIDParam](c)
	var userID string
	if req, ok := get[likePostRequest](c); ok {
		userID = req.UserID
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	res, err := h.svc.LikePost(ctx, p.ID, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res.Body())
}

// bindBody decodes and validates the JSON body before any other stage runs.
// A positive limit caps the body size.
func bindBody[T any](limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		var req T
		if err := c.ShouldBindJSON(&req); err != nil {
			var tooBig *http.MaxBytesError
			switch {
			case errors.As(err, &tooBig):
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"message": fmt.Sprintf("request body exceeds %d bytes", tooBig.Limit)})
			case errors.Is(err, io.EOF):
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "request body is required"})
			default:
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": bindingMessage(err)})
			}
			return
		}
		c.Set(requestKey+typeKey[T](), &req)
		c.Next()
	}
}

func bindURI[T any]() gin.HandlerFunc {
	return func(c *gin.Context) {
		var p T
		if err := c.ShouldBindUri(&p); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": bindingMessage(err)})
			return
		}
		c.Set(requestKey+typeKey[T](), &p)
		c.Next()
	}
}

func mustGet[T any](c *gin.Context) *T {
	return c.MustGet(requestKey + typeKey[T]()).(*T)
}

func get[T any](c *gin.Context) (*T, bool) {
	v, ok := c.Get(requestKey + typeKey[T]())
	if !ok {
		return nil, false
	}
	return v.(*T), true
}

func typeKey[T any]() string {
	var zero T
	return fmt.Sprintf(".%T", zero)
}
