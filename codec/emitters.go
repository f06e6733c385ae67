// File: codec/emitters.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package codec

import (
	"fmt"

	"github.com/momentics/hioload-conn/api"
	"github.com/momentics/hioload-conn/internal/event"
)

// DefaultMaxFrameSize bounds a single buffered frame.
const DefaultMaxFrameSize = 1 << 20 // 1 MiB

// emitters carries the listener side of api.Codec for embedding.
type emitters[C any] struct {
	commands event.Emitter[C]
	errs     event.Emitter[error]
}

func (e *emitters[C]) OnCommand(fn func(C))    { e.commands.On(fn) }
func (e *emitters[C]) OnError(fn func(error)) { e.errs.On(fn) }

// RemoveAllListeners implements api.Codec.
func (e *emitters[C]) RemoveAllListeners() {
	e.commands.RemoveAll()
	e.errs.RemoveAll()
}

func (e *emitters[C]) emitCommand(cmd C) { e.commands.Emit(cmd) }

func (e *emitters[C]) emitError(err error) { e.errs.Emit(err) }

func decodeError(codec string, cause error) error {
	return api.WrapError(api.ErrCodeDecode, codec+": decode failed", cause)
}

func encodeError(codec string, cause error) error {
	return api.WrapError(api.ErrCodeEncode, codec+": encode failed", cause)
}

func frameTooLarge(codec string, size uint64, limit int) error {
	return api.WrapError(api.ErrCodeDecode, codec+": frame rejected",
		fmt.Errorf("%w: %d > %d", api.ErrFrameTooLarge, size, limit)).
		WithContext("size", size).
		WithContext("limit", limit)
}
