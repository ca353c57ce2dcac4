package hardware

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ReadAdcValue reads one raw sample from a sysfs IIO ADC channel.
func ReadAdcValue(device string, channel int) (int, error) {
	path := fmt.Sprintf("/sys/bus/iio/devices/%s/in_voltage%d_raw", device, channel)
	data, err := os.ReadFile(path)
	if err != nil {
		return -1, fmt.Errorf("failed reading %s: %w", path, err)
	}

	value, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return -1, fmt.Errorf("failed parsing ADC value from %s: %w", path, err)
	}

	return value, nil
}
