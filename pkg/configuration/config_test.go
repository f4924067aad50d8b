package configuration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestUnmarshalWithDecoderOptions(t *testing.T) {
	a := assert.New(t)

	dir := t.TempDir()
	raw := `{
  "diskSelector": [
    {"name": "system", "re": ["^/dev/sd[ab]$"], "policy": "plan"},
    {"name": "data", "re": ["^/dev/nvme[0-9]+n[0-9]+$"], "policy": "plan"}
  ],
  "diskScanInterval": 300,
  "strictExtract": true,
  "defaultPtable": "gpt"
}`
	err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(raw), 0644)
	a.NoError(err)

	v := viper.New()
	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetConfigType("json")
	a.NoError(v.ReadInConfig())

	var plan Plan
	a.NoError(v.Unmarshal(&plan, opt))

	a.Len(planConfig.DiskSelectors, 2)
	a.Equal("system", planConfig.DiskSelectors[0].Name)
	a.Equal([]string{"^/dev/sd[ab]$"}, planConfig.DiskSelectors[0].Re)
	a.Equal(int64(300), planConfig.DiskScanInterval)
	a.True(v.GetBool("strictExtract"))
	a.Equal("gpt", v.GetString("defaultPtable"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		plan    Plan
		wantErr bool
	}{
		{"empty", Plan{}, false},
		{"good selectors", Plan{DiskSelectors: []DiskSelectorItem{
			{Name: "system", Re: []string{"^/dev/sda$"}},
		}}, false},
		{"empty group name", Plan{DiskSelectors: []DiskSelectorItem{
			{Name: "", Re: []string{".*"}},
		}}, true},
		{"bad group name", Plan{DiskSelectors: []DiskSelectorItem{
			{Name: "-bad-", Re: []string{".*"}},
		}}, true},
		{"duplicate group", Plan{DiskSelectors: []DiskSelectorItem{
			{Name: "system", Re: []string{"a"}},
			{Name: "system", Re: []string{"b"}},
		}}, true},
		{"bad ptable", Plan{DefaultPtable: "vtoc"}, true},
		{"dos ptable", Plan{DefaultPtable: "dos"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate(tt.plan)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
