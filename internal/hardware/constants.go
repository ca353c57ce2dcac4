package hardware

const (
	// Lick detector electrode, read through the IIO ADC. Raw values above
	// the threshold count as a lick.
	LickAdcDevice  = "iio:device0"
	LickAdcChannel = 0
	LickThresh     = 900

	// Speaker tone generator sysfs PWM chip.
	PwmChipDir = "/sys/class/pwm/pwmchip0"
	PwmChannel = 0
)

var DoMappings = map[string]struct {
	Chip int
	Line int
}{
	"reward_valve":   {2, 10},
	"house_light":    {2, 9},
	"stepper_enable": {4, 4},
	"stepper_dir":    {4, 6},
	"stepper_step":   {4, 7},
}
