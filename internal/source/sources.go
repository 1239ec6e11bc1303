package source

import (
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultSources are public subscription mirrors used when no source list
// file is configured.
var DefaultSources = []string{
	"https://raw.githubusercontent.com/MatinGhanbari/v2ray-configs/main/subscriptions/v2ray/all_sub.txt",
	"https://raw.githubusercontent.com/barry-far/V2ray-Config/main/All_Configs_Sub.txt",
	"https://raw.githubusercontent.com/ebrasha/free-v2ray-public-list/main/all_extracted_configs.txt",
}

type sourceList struct {
	Sources []string `yaml:"sources"`
}

// LoadSources reads the YAML source list at path, falling back to the
// defaults when the file is absent or lists nothing.
func LoadSources(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSources, nil
		}
		return nil, err
	}

	var list sourceList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	if len(list.Sources) == 0 {
		return DefaultSources, nil
	}
	return list.Sources, nil
}
