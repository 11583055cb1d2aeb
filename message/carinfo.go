package message

// CarInfoSize is the encoded size of CarInfo.
const CarInfoSize = 34

const (
	flagHandbrake uint8 = 1 << iota
	flagReversing
	flagClutch
	flagBrake
)

const (
	doorFrontDriver uint8 = 1 << iota
	doorFrontPassenger
	doorRearDriver
	doorRearPassenger
	doorHatch
)

// CarInfo is the periodic engine and body telemetry broadcast by the CAN node.
type CarInfo struct {
	RPM              uint16
	Speed            uint8
	ThrottlePosition uint8
	EngineLoad       uint8

	Odometer       uint32
	CurrentRunTime uint16

	HandbrakeOn     bool
	Reversing       bool
	ClutchDepressed bool
	BrakePressed    bool
	SteeringAngle   float32

	FuelEcoInst float32
	FuelEcoAvg  float32
	KmRemaining uint16
	FuelLevel   uint8

	CoolantTemp int16
	OilTemp     int16
	OilPressure uint16

	FrontDriverDoorOpen    bool
	FrontPassengerDoorOpen bool
	RearDriverDoorOpen     bool
	RearPassengerDoorOpen  bool
	HatchOpen              bool
}

func (CarInfo) Type() Type { return TypeCarInfo }

func (c CarInfo) MarshalBinary() ([]byte, error) {
	w := writer{b: make([]byte, 0, CarInfoSize)}
	w.u16(c.RPM)
	w.u8(c.Speed)
	w.u8(c.ThrottlePosition)
	w.u8(c.EngineLoad)
	w.u32(c.Odometer)
	w.u16(c.CurrentRunTime)
	w.u8(bitsOf(flagHandbrake, c.HandbrakeOn) | bitsOf(flagReversing, c.Reversing) |
		bitsOf(flagClutch, c.ClutchDepressed) | bitsOf(flagBrake, c.BrakePressed))
	w.f32(c.SteeringAngle)
	w.f32(c.FuelEcoInst)
	w.f32(c.FuelEcoAvg)
	w.u16(c.KmRemaining)
	w.u8(c.FuelLevel)
	w.u16(uint16(c.CoolantTemp))
	w.u16(uint16(c.OilTemp))
	w.u16(c.OilPressure)
	w.u8(bitsOf(doorFrontDriver, c.FrontDriverDoorOpen) | bitsOf(doorFrontPassenger, c.FrontPassengerDoorOpen) |
		bitsOf(doorRearDriver, c.RearDriverDoorOpen) | bitsOf(doorRearPassenger, c.RearPassengerDoorOpen) |
		bitsOf(doorHatch, c.HatchOpen))
	return w.b, nil
}

func parseCarInfo(p []byte) (Body, error) {
	if err := need(p, CarInfoSize); err != nil {
		return nil, err
	}

	r := reader{b: p}
	c := CarInfo{}
	c.RPM = r.u16()
	c.Speed = r.u8()
	c.ThrottlePosition = r.u8()
	c.EngineLoad = r.u8()
	c.Odometer = r.u32()
	c.CurrentRunTime = r.u16()
	flags := r.u8()
	c.HandbrakeOn = flags&flagHandbrake != 0
	c.Reversing = flags&flagReversing != 0
	c.ClutchDepressed = flags&flagClutch != 0
	c.BrakePressed = flags&flagBrake != 0
	c.SteeringAngle = r.f32()
	c.FuelEcoInst = r.f32()
	c.FuelEcoAvg = r.f32()
	c.KmRemaining = r.u16()
	c.FuelLevel = r.u8()
	c.CoolantTemp = int16(r.u16())
	c.OilTemp = int16(r.u16())
	c.OilPressure = r.u16()
	doors := r.u8()
	c.FrontDriverDoorOpen = doors&doorFrontDriver != 0
	c.FrontPassengerDoorOpen = doors&doorFrontPassenger != 0
	c.RearDriverDoorOpen = doors&doorRearDriver != 0
	c.RearPassengerDoorOpen = doors&doorRearPassenger != 0
	c.HatchOpen = doors&doorHatch != 0
	return c, nil
}

func bitsOf(flag uint8, set bool) uint8 {
	if set {
		return flag
	}
	return 0
}
