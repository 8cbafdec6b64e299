package app

import (
	"go.uber.org/fx"

	"github.com/trustdrive/stagelink/internal/cache"
	"github.com/trustdrive/stagelink/internal/config"
	"github.com/trustdrive/stagelink/internal/database"
	"github.com/trustdrive/stagelink/internal/logger"
	"github.com/trustdrive/stagelink/internal/messaging"
	"github.com/trustdrive/stagelink/internal/observability"
	repositorydriverlog "github.com/trustdrive/stagelink/internal/repository/driverlog"
	repositorymovement "github.com/trustdrive/stagelink/internal/repository/movement"
	repositoryparcel "github.com/trustdrive/stagelink/internal/repository/parcel"
	repositoryregistry "github.com/trustdrive/stagelink/internal/repository/registry"
	grpcserver "github.com/trustdrive/stagelink/internal/server/grpc"
	httpserver "github.com/trustdrive/stagelink/internal/server/http"
	serviceadmin "github.com/trustdrive/stagelink/internal/service/admin"
	serviceauth "github.com/trustdrive/stagelink/internal/service/auth"
	servicedriver "github.com/trustdrive/stagelink/internal/service/driver"
	servicemovement "github.com/trustdrive/stagelink/internal/service/movement"
	serviceparcel "github.com/trustdrive/stagelink/internal/service/parcel"
	"github.com/trustdrive/stagelink/internal/token"
	transporthttp "github.com/trustdrive/stagelink/internal/transport/http"
	"github.com/trustdrive/stagelink/internal/worker"
	workerparcel "github.com/trustdrive/stagelink/internal/worker/parcel"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	cache.LimiterModule,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	token.Module,
	repositoryregistry.Module,
	repositoryparcel.Module,
	repositorymovement.Module,
	repositorydriverlog.Module,
	serviceauth.Module,
	serviceparcel.Module,
	servicemovement.Module,
	serviceadmin.Module,
	servicedriver.Module,
)

// HTTP wires the HTTP transport on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	transporthttp.Module,
)

// GRPC exposes the gRPC surface (health only for now).
var GRPC = fx.Options(
	Core,
	grpcserver.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerparcel.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
