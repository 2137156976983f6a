package mssql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertValue(t *testing.T) {
	guid := []byte{0x33, 0x22, 0x11, 0x00, 0x55, 0x44, 0x77, 0x66, 0x88, 0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}

	tests := []struct {
		name     string
		val      any
		dbType   string
		expected any
	}{
		{"nvarchar bytes", []byte("West"), "NVARCHAR", "West"},
		{"decimal bytes", []byte("12.50"), "DECIMAL", "12.50"},
		{"money bytes", []byte("3.9900"), "MONEY", "3.9900"},
		{"uniqueidentifier", guid, "UNIQUEIDENTIFIER", "00112233-4455-6677-8899-aabbccddeeff"},
		{"short guid stays bytes", []byte{1, 2}, "UNIQUEIDENTIFIER", []byte{1, 2}},
		{"varbinary stays bytes", []byte{1, 2}, "VARBINARY", []byte{1, 2}},
		{"int passthrough", int64(7), "INT", int64(7)},
		{"nil passthrough", nil, "NVARCHAR", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, convertValue(tt.val, tt.dbType))
		})
	}
}

func TestMapSQLServerType(t *testing.T) {
	tests := map[string]string{
		"int":              "INTEGER",
		"NVARCHAR":         "VARCHAR",
		"DATETIME2":        "TIMESTAMP",
		"DATETIMEOFFSET":   "TIMESTAMP WITH TIME ZONE",
		"BIT":              "BOOLEAN",
		"UNIQUEIDENTIFIER": "UUID",
		"GEOGRAPHY":        "GEOGRAPHY",
	}
	for in, expected := range tests {
		assert.Equal(t, expected, mapSQLServerType(in), in)
	}
}
