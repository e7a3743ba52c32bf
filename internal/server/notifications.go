package server

import (
	"context"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	notificationdomain "github.com/smallbiznis/shaadmin/internal/notification/domain"
	"github.com/smallbiznis/shaadmin/pkg/db/pagination"
)

type listNotificationsQuery struct {
	pagination.Pagination
	UnreadOnly bool `form:"unread_only"`
}

type markNotificationsRequest struct {
	IDs []snowflake.ID `json:"ids" binding:"required,min=1"`
}

// Notifications are always scoped to the calling user.

func (s *Server) ListNotifications(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	var query listNotificationsQuery
	if !bindQuery(c, &query) {
		return
	}

	resp, err := s.notificationSvc.List(c.Request.Context(), notificationdomain.ListRequest{
		Pagination: query.Pagination,
		UserID:     actor.UserID,
		UnreadOnly: query.UnreadOnly,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Notifications, "page_info": resp.PageInfo})
}

func (s *Server) UnreadNotificationCount(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	count, err := s.notificationSvc.UnreadCount(c.Request.Context(), actor.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"unread": count}})
}

func (s *Server) MarkNotificationsRead(c *gin.Context) {
	s.markNotifications(c, s.notificationSvc.MarkRead)
}

func (s *Server) MarkNotificationsUnread(c *gin.Context) {
	s.markNotifications(c, s.notificationSvc.MarkUnread)
}

func (s *Server) markNotifications(c *gin.Context, mark func(ctx context.Context, userID snowflake.ID, ids []snowflake.ID) (int64, error)) {
	actor, ok := actorFrom(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	var req markNotificationsRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := mark(c.Request.Context(), actor.UserID, req.IDs)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"requested": len(req.IDs), "updated": updated}})
}
