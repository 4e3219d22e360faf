package cementprocessor

import (
	"github.com/lattixnet/lattixd/infrastructure/logger"
	"github.com/lattixnet/lattixd/util/panics"
)

var log = logger.RegisterSubSystem("CMPR")
var spawn = panics.GoroutineWrapperFunc(log)
