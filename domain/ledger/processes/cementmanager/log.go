package cementmanager

import (
	"github.com/lattixnet/lattixd/infrastructure/logger"
)

var log = logger.RegisterSubSystem("CMNT")
