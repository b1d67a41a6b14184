package graph

import "time"

// ChildCountUnknown indicates the child count was not present in the API response.
const ChildCountUnknown = -1

// Cloud selects the national cloud an account lives in.
type Cloud string

// Supported clouds.
const (
	CloudGlobal Cloud = "global"
	CloudChina  Cloud = "cn"
)

// Graph API base URLs per cloud.
const (
	globalBaseURL = "https://graph.microsoft.com/v1.0"
	chinaBaseURL  = "https://microsoftgraph.chinacloudapi.cn/v1.0"
)

// BaseURL returns the Graph API base URL for the cloud. Unknown values
// fall back to the global cloud.
func BaseURL(c Cloud) string {
	if c == CloudChina {
		return chinaBaseURL
	}

	return globalBaseURL
}

// Item represents a OneDrive drive item (file, folder, or package).
// Fields are normalized from the Graph API response: callers never see raw API data.
type Item struct {
	ID          string
	Name        string
	ParentPath  string // "/drive/root:/docs" as reported by parentReference.path
	Size        int64
	ETag        string
	IsFolder    bool
	IsDeleted   bool
	MimeType    string
	CreatedAt   time.Time
	ModifiedAt  time.Time
	ChildCount  int    // ChildCountUnknown if not present
	DownloadURL string // pre-authenticated, ephemeral; never log
}

// User is the authenticated principal returned by /me.
type User struct {
	ID          string
	DisplayName string
	Email       string
}

// Drive is a OneDrive or SharePoint document library.
type Drive struct {
	ID         string
	Name       string
	DriveType  string
	OwnerName  string
	OwnerEmail string
	QuotaUsed  int64
	QuotaTotal int64
}

// DeltaPage is one page of the drive's change feed.
type DeltaPage struct {
	Items     []Item
	NextLink  string
	DeltaLink string
}

// Result is the {errno, data} envelope handed to callers that only need to
// know whether a vendor call worked and what payload it carried.
// Errno is 0 on success, the HTTP status for API errors, and ErrnoTransport
// when no response was received.
type Result struct {
	Errno   int
	Message string
	Data    map[string]any
}

// ErrnoTransport is the Result errno for requests that never got an HTTP
// response (network failure, missing token, canceled context).
const ErrnoTransport = -1

// OK reports whether the call succeeded.
func (r Result) OK() bool { return r.Errno == 0 }
