package observable

// Map, Filter and Scan are lazy transformers: they do not subscribe to
// upstream when constructed, only when something subscribes to the
// observable they return — each one's subscribeFn, itself run on
// upstream's provider executor, makes exactly one call to upstream.Subscribe
// the moment a downstream subscription arrives, with its own independent
// state (Scan's accumulator) scoped to that one subscription.

// Map transforms every value upstream pushes with fn; errors and
// completion pass through unchanged.
func Map[T, U any](upstream Observable[T], fn func(T) U) Observable[U] {
	return Observable[U]{
		exec: upstream.exec,
		subscribeFn: func(down *Subscriber[U]) {
			if _, err := upstream.Subscribe(
				func(v T) { down.PushValue(fn(v)) },
				func(e error) { down.PushError(e) },
				func() { down.Complete() },
			); err != nil {
				down.PushError(err)
			}
		},
	}
}

// Filter forwards only the upstream values for which pred returns true;
// errors and completion pass through unchanged.
func Filter[T any](upstream Observable[T], pred func(T) bool) Observable[T] {
	return Observable[T]{
		exec: upstream.exec,
		subscribeFn: func(down *Subscriber[T]) {
			if _, err := upstream.Subscribe(
				func(v T) {
					if pred(v) {
						down.PushValue(v)
					}
				},
				func(e error) { down.PushError(e) },
				func() { down.Complete() },
			); err != nil {
				down.PushError(err)
			}
		},
	}
}

// Scan folds upstream values into a running accumulator seeded with seed,
// pushing the updated accumulator downstream after every upstream value.
// Each subscription gets its own accumulator starting at seed.
func Scan[T, U any](upstream Observable[T], seed U, fn func(acc U, v T) U) Observable[U] {
	return Observable[U]{
		exec: upstream.exec,
		subscribeFn: func(down *Subscriber[U]) {
			acc := seed
			if _, err := upstream.Subscribe(
				func(v T) {
					acc = fn(acc, v)
					down.PushValue(acc)
				},
				func(e error) { down.PushError(e) },
				func() { down.Complete() },
			); err != nil {
				down.PushError(err)
			}
		},
	}
}
