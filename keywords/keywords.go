package keywords

import (
	"context"
	"fmt"
	"strings"

	"github.com/marketsquare/playwright-bridge/rpc"
)

// SupportedBrowsers are the browser names OpenBrowser accepts, after
// lower-casing and trimming.
var SupportedBrowsers = []string{"chrome", "firefox", "webkit"}

// OpenBrowser starts a browser and optionally navigates it to url.
// The browser name is validated locally: an unsupported name fails
// before the engine is started or contacted.
func (b *Bridge) OpenBrowser(ctx context.Context, browser, url string) error {
	normalized := strings.ToLower(strings.TrimSpace(browser))
	supported := false
	for _, s := range SupportedBrowsers {
		if normalized == s {
			supported = true
			break
		}
	}
	if !supported {
		return &ValidationError{Value: browser, Supported: SupportedBrowsers}
	}
	_, err := b.call(ctx, rpc.Request{
		Method:  rpc.MethodOpenBrowser,
		URL:     url,
		Browser: normalized,
	})
	return err
}

// CloseBrowser closes the currently open browser.
func (b *Bridge) CloseBrowser(ctx context.Context) error {
	_, err := b.call(ctx, rpc.Request{Method: rpc.MethodCloseBrowser})
	return err
}

// GoTo navigates the active page to url.
func (b *Bridge) GoTo(ctx context.Context, url string) error {
	_, err := b.call(ctx, rpc.Request{Method: rpc.MethodGoTo, URL: url})
	return err
}

// InputText types text into the element matching selector.
func (b *Bridge) InputText(ctx context.Context, selector, text string) error {
	_, err := b.call(ctx, rpc.Request{
		Method:   rpc.MethodInputText,
		Selector: selector,
		Input:    text,
	})
	return err
}

// ClickButton clicks the element matching selector.
func (b *Bridge) ClickButton(ctx context.Context, selector string) error {
	_, err := b.call(ctx, rpc.Request{Method: rpc.MethodClickButton, Selector: selector})
	return err
}

// GetURL returns the active page's current URL.
func (b *Bridge) GetURL(ctx context.Context) (string, error) {
	resp, err := b.call(ctx, rpc.Request{Method: rpc.MethodGetURL})
	if err != nil {
		return "", err
	}
	return resp.Body, nil
}

// GetTitle returns the active page's title.
func (b *Bridge) GetTitle(ctx context.Context) (string, error) {
	resp, err := b.call(ctx, rpc.Request{Method: rpc.MethodGetTitle})
	if err != nil {
		return "", err
	}
	return resp.Body, nil
}

// GetInputValue returns the value of the input element matching
// selector.
func (b *Bridge) GetInputValue(ctx context.Context, selector string) (string, error) {
	resp, err := b.call(ctx, rpc.Request{Method: rpc.MethodGetInputValue, Selector: selector})
	if err != nil {
		return "", err
	}
	return resp.Body, nil
}

// GetTextContent returns the text content of the element matching
// selector.
func (b *Bridge) GetTextContent(ctx context.Context, selector string) (string, error) {
	resp, err := b.call(ctx, rpc.Request{Method: rpc.MethodGetTextContent, Selector: selector})
	if err != nil {
		return "", err
	}
	return resp.Body, nil
}

// LocationShouldBe fails unless the page URL equals url.
func (b *Bridge) LocationShouldBe(ctx context.Context, url string) error {
	observed, err := b.GetURL(ctx)
	if err != nil {
		return err
	}
	if observed != url {
		return &AssertionError{
			Expected: url,
			Actual:   observed,
			message:  fmt.Sprintf("URL should be `%s` but was `%s`", url, observed),
		}
	}
	return nil
}

// TextfieldValueShouldBe fails unless the input matching selector
// holds text.
func (b *Bridge) TextfieldValueShouldBe(ctx context.Context, selector, text string) error {
	observed, err := b.GetInputValue(ctx, selector)
	if err != nil {
		return err
	}
	if observed != text {
		return &AssertionError{
			Expected: text,
			Actual:   observed,
			message:  fmt.Sprintf("Textfield %s value should be `%s` but was `%s`", selector, text, observed),
		}
	}
	return nil
}

// TitleShouldBe fails unless the page title equals title.
func (b *Bridge) TitleShouldBe(ctx context.Context, title string) error {
	observed, err := b.GetTitle(ctx)
	if err != nil {
		return err
	}
	if observed != title {
		return &AssertionError{
			Expected: title,
			Actual:   observed,
			message:  fmt.Sprintf("Title should be `%s` but was `%s`", title, observed),
		}
	}
	return nil
}

// PageShouldContain fails unless an element with the given text exists
// on the page. The lookup uses the engine's text locator strategy.
func (b *Bridge) PageShouldContain(ctx context.Context, text string) error {
	observed, err := b.GetTextContent(ctx, "text="+text)
	if err != nil {
		return err
	}
	if observed != text {
		return &AssertionError{
			Expected: text,
			Actual:   observed,
			message:  fmt.Sprintf("No element with text `%s` on page", text),
		}
	}
	return nil
}
