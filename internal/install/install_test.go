package install

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewManifest(t *testing.T) {
	m, err := NewManifest("/usr/local/bin/rofi-chrome-host", []string{"abcdefghijklmnopabcdefghijklmnop", "chrome-extension://ponmlkjihgfedcba/"})
	require.NoError(t, err)
	require.Equal(t, Manifest{
		Name:        HostName,
		Description: "rofi-chrome native messaging host",
		Path:        "/usr/local/bin/rofi-chrome-host",
		AllowedOrigins: []string{
			"chrome-extension://abcdefghijklmnopabcdefghijklmnop/",
			"chrome-extension://ponmlkjihgfedcba/",
		},
		Type: "stdio",
	}, m)
	require.Equal(t, "io.github.tcode2k16.rofi.chrome.json", m.Filename())
}

func TestNewManifestRejectsBadInput(t *testing.T) {
	_, err := NewManifest("rofi-chrome-host", []string{"abc"})
	require.ErrorContains(t, err, "absolute")

	_, err = NewManifest("/bin/host", nil)
	require.ErrorContains(t, err, "extension id")

	_, err = NewManifest("/bin/host", []string{"a/b"})
	require.ErrorContains(t, err, "invalid extension id")
}

func TestDirPerBrowserAndScope(t *testing.T) {
	tests := []struct {
		target Target
		want   string
	}{
		{target: Target{Browser: "chrome", Home: "/home/u"}, want: "/home/u/.config/google-chrome/NativeMessagingHosts"},
		{target: Target{Browser: "chromium", Home: "/home/u"}, want: "/home/u/.config/chromium/NativeMessagingHosts"},
		{target: Target{Browser: "brave", Home: "/home/u"}, want: "/home/u/.config/BraveSoftware/Brave-Browser/NativeMessagingHosts"},
		{target: Target{Browser: "chrome", System: true}, want: "/etc/opt/chrome/native-messaging-hosts"},
		{target: Target{Browser: "chromium", System: true, Root: "/sysroot"}, want: "/sysroot/etc/chromium/native-messaging-hosts"},
	}
	for _, tc := range tests {
		got, err := Dir(tc.target)
		require.NoError(t, err)
		require.Equal(t, tc.want, got)
	}

	_, err := Dir(Target{Browser: "netscape"})
	require.ErrorContains(t, err, "unsupported browser")
}

func TestWriteUserScope(t *testing.T) {
	home := t.TempDir()
	m, err := NewManifest("/opt/rc/rofi-chrome-host", []string{"abc"})
	require.NoError(t, err)

	path, err := Write(m, Target{Browser: "chromium", Home: home})
	require.NoError(t, err)

	want, err := Path(Target{Browser: "chromium", Home: home})
	require.NoError(t, err)
	require.Equal(t, want, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got Manifest
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, m, got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestWriteSystemScopeUnderRoot(t *testing.T) {
	root := t.TempDir()
	m, err := NewManifest("/usr/bin/rofi-chrome-host", []string{"abc"})
	require.NoError(t, err)

	path, err := Write(m, Target{Browser: "chrome", System: true, Root: root})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "etc/opt/chrome/native-messaging-hosts", HostName+".json"), path)
	require.FileExists(t, path)
}
