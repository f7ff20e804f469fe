package controller

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadConfigs unmarshals a slice of Config from path. For backwards
// compatibility with a single saved run profile, it also accepts a file
// containing one bare Config object rather than a list, grounded on the
// teacher's own LoadDeviceProperties.
func LoadConfigs(path string) ([]Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("controller: failed to read config file %q: %w", path, err)
	}

	var configs []Config
	if err := json.Unmarshal(data, &configs); err != nil {
		var single Config
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("controller: %q is neither a Config nor a list of Config: %w", path, err)
		}
		configs = append(configs, single)
	}
	return configs, nil
}
