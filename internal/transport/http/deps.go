package http

import (
	"github.com/buildstream-notify/internal/application/realtime"
	"github.com/buildstream-notify/internal/infrastructure/dynamo"
	jwtinfra "github.com/buildstream-notify/internal/infrastructure/jwt"
	s3infra "github.com/buildstream-notify/internal/infrastructure/s3"
	"github.com/buildstream-notify/internal/infrastructure/sns"
)

// Deps holds all infrastructure dependencies for the router. OpsAlerts may
// be nil when no alert topic is configured; everything else is required.
type Deps struct {
	NotificationRepo *dynamo.NotificationRepo
	UserRepo         *dynamo.UserRepo
	LookupRepo       *dynamo.LookupRepo
	DeadLetterRepo   *dynamo.DeadLetterRepo
	Archive          *s3infra.Archive
	OpsAlerts        sns.AlertPublisher
	Hub              *realtime.Hub
	JWTProvider      *jwtinfra.Provider
}
