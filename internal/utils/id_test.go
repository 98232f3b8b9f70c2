package utils

import (
	"errors"
	"net"
	"testing"
)

func TestEndpointID(t *testing.T) {
	tests := []struct {
		name    string
		addr    net.Addr
		want    string
		wantErr bool
	}{
		{name: "tcp v4", addr: &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 5000}, want: "127.0.0.1:5000"},
		{name: "tcp v6", addr: &net.TCPAddr{IP: net.ParseIP("::1"), Port: 5000}, want: "[::1]:5000"},
		{name: "nil", addr: nil, wantErr: true},
		{name: "tcp without ip", addr: &net.TCPAddr{Port: 5000}, wantErr: true},
		{name: "unix socket", addr: &net.UnixAddr{Name: "/tmp/sock", Net: "unix"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EndpointID(tt.addr)
			if tt.wantErr {
				if !errors.Is(err, ErrNoRemoteAddress) {
					t.Fatalf("expected ErrNoRemoteAddress, got %q, %v", got, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("EndpointID = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEndpointIDFromString(t *testing.T) {
	if got, err := EndpointIDFromString("10.1.2.3:8080"); err != nil || got != "10.1.2.3:8080" {
		t.Fatalf("unexpected result %q, %v", got, err)
	}
	for _, bad := range []string{"", "pipe", "example.com:80", "10.1.2.3:http"} {
		if _, err := EndpointIDFromString(bad); !errors.Is(err, ErrNoRemoteAddress) {
			t.Errorf("EndpointIDFromString(%q) error = %v", bad, err)
		}
	}
}

func TestNewTraceIDUnique(t *testing.T) {
	if NewTraceID() == NewTraceID() {
		t.Fatal("trace ids collided")
	}
}
