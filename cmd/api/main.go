package main

import (
	"go.uber.org/fx"

	"github.com/trustdrive/stagelink/internal/app"
)

func main() {
	fx.New(app.Module).Run()
}
