package crudboot

// Result carries the outcome of an asynchronous repository call.
type Result[T any] struct {
	Value T
	Err   error
}

func runAsync[T any](fn func() (T, error)) <-chan Result[T] {
	ch := make(chan Result[T], 1)
	go func() {
		defer close(ch)
		v, err := fn()
		ch <- Result[T]{Value: v, Err: err}
	}()
	return ch
}

// Await blocks until the asynchronous call delivers its result.
func Await[T any](ch <-chan Result[T]) (T, error) {
	r := <-ch
	return r.Value, r.Err
}
