package rpc

// Method names understood by the engine process.
const (
	MethodHealth         = "health"
	MethodOpenBrowser    = "openBrowser"
	MethodCloseBrowser   = "closeBrowser"
	MethodGoTo           = "goTo"
	MethodInputText      = "inputText"
	MethodClickButton    = "clickButton"
	MethodGetURL         = "getUrl"
	MethodGetTitle       = "getTitle"
	MethodGetInputValue  = "getInputValue"
	MethodGetTextContent = "getTextContent"
)

// Request is the single message a session sends to the engine.
// Only the fields relevant to the method are set.
type Request struct {
	Method   string `json:"method"`
	URL      string `json:"url,omitempty"`
	Browser  string `json:"browser,omitempty"`
	Selector string `json:"selector,omitempty"`
	Input    string `json:"input,omitempty"`
}

// Response is the single message the engine sends back. Log carries a
// human-readable account of what the engine did, Body carries the
// observed value for getter methods, and a non-empty Error means the
// engine failed to perform the action.
type Response struct {
	Log   string `json:"log"`
	Body  string `json:"body"`
	Error string `json:"error,omitempty"`
}
