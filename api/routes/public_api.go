package routes

import (
	"socialmatch/api/handlers"
	"socialmatch/api/middleware"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Users   *handlers.UserHandlers
	Match   *handlers.MatchHandlers
	Friends *handlers.FriendHandlers
	Dialogs *handlers.DialogHandlers
	WS      *handlers.WSHandler
}

func PublicApi(router *gin.Engine, h Handlers) *gin.RouterGroup {
	publicEndpoints := router.Group("/api/v1/")
	publicEndpoints.POST("user/register", h.Users.Register)
	publicEndpoints.POST("user/login", h.Users.Login)

	authorized := publicEndpoints.Group("")
	authorized.Use(middleware.TestAuthMiddleware())
	{
		authorized.GET("user/get/:id", h.Users.Get)

		// Мэтчи
		authorized.GET("match/:user_id/status", h.Match.GetStatus)
		authorized.POST("match/:user_id/like", h.Match.SendLike)
		authorized.POST("match/:user_id/unlike", h.Match.RequestUnlike)
		authorized.POST("match/:user_id/unlike/decline", h.Match.DeclineUnlike)

		// Друзья
		authorized.POST("friends/add", h.Friends.AddFriend)
		authorized.POST("friends/approve", h.Friends.ApproveFriend)
		authorized.POST("friends/delete", h.Friends.DeleteFriend)
		authorized.POST("friends/block", h.Friends.BlockFriend)
		authorized.GET("friends/list", h.Friends.GetFriends)
		authorized.GET("friends/requests", h.Friends.GetPendingRequests)

		// Диалоги и уведомления
		authorized.POST("dialog/:user_id/send", h.Dialogs.SendMessage)
		authorized.GET("dialog/:user_id/list", h.Dialogs.ListDialog)
		authorized.GET("notifications", h.Dialogs.ListNotifications)

		authorized.GET("ws", h.WS.Connect)
	}
	return publicEndpoints
}
