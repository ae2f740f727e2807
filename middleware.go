package ensemble

import (
	"fmt"

	"github.com/rs/zerolog"
)

// ChainReceiver composes mw around final in order: mw[0] is outermost, so it
// sees a message first and decides whether/how the rest of the chain runs.
func ChainReceiver(mw []ReceiverMiddleware, final ReceiveFunc) ReceiveFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		final = mw[i](final)
	}
	return final
}

// ChainSender composes mw around final the same way, for outbound traffic.
func ChainSender(mw []SenderMiddleware, final SenderFunc) SenderFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		final = mw[i](final)
	}
	return final
}

// LoggingReceiverMiddleware logs the type of every inbound user message at
// debug level before handing it to the next stage. Intended as an example
// and a debugging aid, not wired in by default.
func LoggingReceiverMiddleware(logger zerolog.Logger) ReceiverMiddleware {
	return func(next ReceiveFunc) ReceiveFunc {
		return func(ctx Context) {
			logger.Debug().
				Str("self", ctx.Self().String()).
				Str("type", messageTypeName(ctx.Message())).
				Msg("receive")
			next(ctx)
		}
	}
}

// LoggingSenderMiddleware logs every outbound send at debug level.
func LoggingSenderMiddleware(logger zerolog.Logger) SenderMiddleware {
	return func(next SenderFunc) SenderFunc {
		return func(ctx Context, target PID, message any) {
			logger.Debug().
				Str("self", ctx.Self().String()).
				Str("target", target.String()).
				Str("type", messageTypeName(message)).
				Msg("send")
			next(ctx, target, message)
		}
	}
}

func messageTypeName(message any) string {
	if message == nil {
		return "<nil>"
	}
	type named interface{ String() string }
	if n, ok := message.(named); ok {
		return n.String()
	}
	return fmt.Sprintf("%T", message)
}
