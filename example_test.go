package worksteal_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/Swind/go-worksteal"
)

// ExampleSubmit demonstrates submitting a task and reading its result.
func ExampleSubmit() {
	pool, err := worksteal.NewPool(worksteal.WithWorkers(2))
	if err != nil {
		panic(err)
	}
	defer pool.Stop()

	fut := worksteal.Submit(context.Background(), pool, func(ctx context.Context) (int, error) {
		return 1 + 2, nil
	})

	v, err := fut.Get()
	fmt.Println(v, err)

	// Output:
	// 3 <nil>
}

// ExampleSubmit_nested demonstrates a task fanning out work onto its own worker.
func ExampleSubmit_nested() {
	pool, err := worksteal.NewPool(worksteal.WithWorkers(4))
	if err != nil {
		panic(err)
	}
	defer pool.Stop()

	sum := worksteal.Submit(context.Background(), pool, func(ctx context.Context) (int, error) {
		parts := make([]*worksteal.Future[int], 4)
		for i := range parts {
			parts[i] = worksteal.Submit(ctx, pool, func(ctx context.Context) (int, error) {
				return i * 10, nil
			})
		}

		total := 0
		for _, p := range parts {
			v, err := p.Get()
			if err != nil {
				return 0, err
			}
			total += v
		}
		return total, nil
	})

	v, _ := sum.Get()
	fmt.Println(v)

	// Output:
	// 60
}

// ExamplePool_Stop demonstrates that a stopped pool abandons new work.
func ExamplePool_Stop() {
	pool, err := worksteal.NewPool(worksteal.WithWorkers(1))
	if err != nil {
		panic(err)
	}
	if err := pool.Stop(); err != nil {
		panic(err)
	}

	_, err = worksteal.Submit(context.Background(), pool, func(ctx context.Context) (string, error) {
		return "never runs", nil
	}).Get()
	fmt.Println(errors.Is(err, worksteal.ErrAbandoned))

	// Output:
	// true
}

// ExampleGo demonstrates the global pool helper.
func ExampleGo() {
	if err := worksteal.InitGlobalPool(2); err != nil {
		panic(err)
	}
	defer worksteal.ShutdownGlobalPool()

	v, _ := worksteal.Go(context.Background(), func(ctx context.Context) (string, error) {
		return "hello from the pool", nil
	}).Get()
	fmt.Println(v)

	// Output:
	// hello from the pool
}
