package output

import "github.com/sirupsen/logrus"

// log 输出模块的日志记录器
var log = logrus.WithField("module", "output")
