package entrada

import (
	"fmt"

	"github.com/goliatone/go-logger/glog"
)

// FromGlog adapts a go-logger instance to the package Logger interface so
// applications already running glog can route resolver output through it.
func FromGlog(l glog.Logger) Logger {
	if l == nil {
		return DefaultLogger()
	}
	return glogAdapter{l: l}
}

type glogAdapter struct {
	l glog.Logger
}

func (a glogAdapter) Debug(format string, args ...any) { a.l.Debug(fmt.Sprintf(format, args...)) }
func (a glogAdapter) Info(format string, args ...any)  { a.l.Info(fmt.Sprintf(format, args...)) }
func (a glogAdapter) Error(format string, args ...any) { a.l.Error(fmt.Sprintf(format, args...)) }
