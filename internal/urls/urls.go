package urls

// Freebox OS SDK documentation

// SDKHome is the entry page of the Freebox OS API documentation.
const SDKHome = "https://dev.freebox.fr/sdk/os/"

// Login documents app pairing and the session challenge.
const Login = "https://dev.freebox.fr/sdk/os/login/"

// Events documents the websocket notification API.
const Events = "https://dev.freebox.fr/sdk/os/#websocket-event-api"

// Discovery documents the mDNS advertisement and the api_version endpoint.
const Discovery = "https://dev.freebox.fr/sdk/os/#api-discovery"

// AppManagement is where paired applications are revoked or granted permissions.
const AppManagement = "http://mafreebox.freebox.fr/#Fbx.os.app.settings.AccessManagement"
