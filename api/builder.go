package api

import "github.com/sarchlab/otbn/accel"

// DriverBuilder creates a new instance of Driver.
type DriverBuilder struct {
	device accel.Device
	host   HostMemory
	config accel.Config
}

// WithDevice sets the register-access layer the driver owns.
func (b DriverBuilder) WithDevice(device accel.Device) DriverBuilder {
	b.device = device
	return b
}

// WithHostMemory sets the CPU address space application images are read from.
func (b DriverBuilder) WithHostMemory(host HostMemory) DriverBuilder {
	b.host = host
	return b
}

// WithConfig sets the configuration passed to the register-access layer.
func (b DriverBuilder) WithConfig(config accel.Config) DriverBuilder {
	b.config = config
	return b
}

// Build creates a driver and initializes it. The driver starts without an
// application.
func (b DriverBuilder) Build(name string) (Driver, error) {
	d := &driverImpl{
		name: name,
		host: b.host,
	}

	if err := d.init(b.device, b.config); err != nil {
		return nil, err
	}

	return d, nil
}
