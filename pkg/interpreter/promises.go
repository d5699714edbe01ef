package interpreter

import (
	"errors"

	"rcore/interpreter-go/pkg/runtime"
)

// forcePromise evaluates p once in its creating environment. A failed
// forcing leaves p unforced so that a later read retries it.
func (i *Interpreter) forcePromise(p *runtime.Promise) (runtime.Value, error) {
	if p.Forced() {
		return p.Value(), nil
	}
	v, err := p.Force(i.evaluateExpression)
	if err != nil {
		var rec *runtime.PromiseRecursionError
		if errors.As(err, &rec) {
			i.logger.Debug().Msg("recursive promise forcing")
		}
		return nil, i.raise(i.currentCall(), err)
	}
	return v, nil
}
