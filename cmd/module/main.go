package main

import (
	"blindkey"

	"go.viam.com/rdk/components/sensor"
	"go.viam.com/rdk/module"
	"go.viam.com/rdk/resource"
	generic "go.viam.com/rdk/services/generic"
)

func main() {
	module.ModularMain(
		resource.APIModel{API: generic.API, Model: blindkey.Controller},
		resource.APIModel{API: sensor.API, Model: blindkey.RunSensor},
	)
}
