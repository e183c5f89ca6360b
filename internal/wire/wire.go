package wire

import (
	"Chatify/internal/api"
	"Chatify/internal/api/config"
	"Chatify/internal/api/handler"
	"Chatify/internal/job"
	"Chatify/internal/pkg/cron"
	"Chatify/internal/pkg/mongo"
	"Chatify/internal/repository"
	"Chatify/internal/service"
	"context"

	"github.com/gin-gonic/gin"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router          *gin.Engine
	DB              *gorm.DB
	CronMgr         *cron.Manager
	PresenceService service.PresenceService
}

func BuildApplication(db *gorm.DB, mongoConn *mongodrv.Database, cfg *config.Config) (*ApplicationContainer, error) {
	userRepo := repository.NewUserRepo(db)
	vaultRepo := repository.NewVaultRepo(db)
	messageRepo := mongo.NewMessageRepo(mongoConn)

	bus := service.NewRedisEventBus()
	pushService := service.NewPushService()
	presenceService := service.NewPresenceService(userRepo, bus)
	chatService := service.NewChatService(messageRepo, userRepo, bus, pushService, presenceService)
	vaultService := service.NewVaultService(userRepo, vaultRepo, messageRepo)

	// 用户上线时补投其未送达消息
	presenceService.OnJoin(func(userID uint64) {
		chatService.DeliverPending(context.Background(), userID)
	})

	handlers := &api.HandlersGroup{
		ChatHandler:  handler.NewChatHandler(chatService, presenceService),
		VaultHandler: handler.NewVaultHandler(vaultService),
		WSHandler:    handler.NewWsHandler(presenceService),
	}

	router := api.SetupRouter(handlers)

	reaperJob := job.NewReaperJob(chatService)
	cronMgr := cron.NewCronManager(reaperJob)

	return &ApplicationContainer{
		Router:          router,
		DB:              db,
		CronMgr:         cronMgr,
		PresenceService: presenceService,
	}, nil
}
