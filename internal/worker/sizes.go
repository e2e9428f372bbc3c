package worker

import (
	"unsafe"

	"github.com/preforkhq/apiserver/internal/ipc/fifo"
	"github.com/preforkhq/apiserver/internal/ipc/priority"
	"github.com/preforkhq/apiserver/internal/master"
)

var (
	sizeOfConnJob      = unsafe.Sizeof(fifo.ConnJob{})
	sizeOfControlEntry = unsafe.Sizeof(priority.Entry[master.ControlMsg]{})
)
