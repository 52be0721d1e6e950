package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tracerstudy/tracer-sync/internal/app/models"
)

func TestMapStatus(t *testing.T) {
	tests := []struct {
		status string
		want   models.StatusMarker
	}{
		{"Wiraswasta", models.MarkerSelfEmployed},
		{"Memiliki perusahaan sendiri", models.MarkerSelfEmployed},
		{"Bekerja sambil melanjutkan pendidikan", models.MarkerStudying},
		{"Studi lanjut S2", models.MarkerStudying},
		{"Belum bekerja", models.MarkerUnemployed},
		{"Sedang mencari kerja", models.MarkerUnemployed},
		{"Tidak kerja tetapi sedang mencari kerja", models.MarkerUnemployed},
		{"BEKERJA (full time / part time)", models.MarkerEmployed},
		{"lainnya", models.MarkerUnemployed},
		{"", models.MarkerUnemployed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MapStatus(tt.status, models.MarkerUnemployed), tt.status)
	}

	assert.Equal(t, models.MarkerEmployed, MapStatus("lainnya", models.MarkerEmployed))
}

func TestIsRespondent(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		flag    string
		hasID   bool
		hasName bool
		want    bool
	}{
		{"employed", "Bekerja", "", false, false, true},
		{"looking", "Belum, masih mencari", "", false, false, true},
		{"undecided", "Belum memutuskan", "", true, true, false},
		{"flag yes", "", "Ya", false, false, true},
		{"flag sentence", "", "Saya mendapatkan pekerjaan", false, false, true},
		{"identified by id", "", "", true, false, true},
		{"identified by name", "lainnya", "tidak", false, true, true},
		{"nothing", "", "", false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRespondent(tt.status, tt.flag, tt.hasID, tt.hasName))
		})
	}
}
