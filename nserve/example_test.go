package nserve_test

import (
	"context"
	"fmt"

	"github.com/muir/nkernel/nserve"
)

type library struct {
	name     string
	startErr error
}

func (l library) register(app *nserve.App, start, stop *nserve.Hook) {
	app.On(start, func(_ context.Context, app *nserve.App) error {
		app.On(stop, func(context.Context, *nserve.App) error {
			fmt.Println(l.name, "stopped")
			return fmt.Errorf("%s stop error", l.name)
		})
		fmt.Println(l.name, "started")
		return l.startErr
	})
}

// Example shows the startup and shutdown of an app with three libraries
// where the second one fails to start.
func Example() {
	start, stop, _ := hooks()
	app := nserve.NewApp("myApp")
	library{name: "L1"}.register(app, start, stop)
	library{name: "L2", startErr: fmt.Errorf("L2 start error")}.register(app, start, stop)
	library{name: "L3"}.register(app, start, stop)

	err := app.Do(context.Background(), start)
	fmt.Println("do start error:", err)
	// Output: L1 started
	// L2 started
	// L2 stopped
	// L1 stopped
	// do start error: L2 start error; L2 stop error; L1 stop error
}
