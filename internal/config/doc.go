// Package config stores the paired Freebox routers of the user.
//
// Pairing produces an app token that the box never hands out again, so it is
// kept in a YAML file together with the connection details of the box:
//
//	version: 1
//	boxes:
//	  0123456789abcdef:
//	    nickname: home
//	    app_id: fr.freebox.fbx
//	    app_token: dyNYgfK0Ya6FWGqq83sBHa7TwzWo+pg4fDFUJHShcjVYzTfaRrZzm93p7OTAfH/0
//	    api_domain: abcd1234.fbxos.fr
//	    https_port: 34567
//	preferences:
//	  auto_discover: true
//	  discover_timeout: 5
//	  default_app_id: fr.freebox.fbx
//	  default_box: 0123456789abcdef
//
// # Configuration File Location
//
//   - $FBX_CONFIG_DIR/config.yaml when FBX_CONFIG_DIR is set
//   - Linux: $XDG_CONFIG_HOME/fbx/config.yaml or $HOME/.config/fbx/config.yaml
//   - macOS: $HOME/.config/fbx/config.yaml
//   - Windows: %LOCALAPPDATA%\fbx\config.yaml
//
// The file is written atomically with 0600 permissions.
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	_, box := registry.FindBox("home")
//	client, err := freebox.New(box.Config(false))
package config
