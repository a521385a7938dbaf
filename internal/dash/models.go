package dash

import "github.com/opsdeck/console/internal/github"

// LoginPageData feeds login.html.
type LoginPageData struct {
	Error string
}

// SelectRepoPageData feeds select_repo.html.
type SelectRepoPageData struct {
	Repos        []github.Repository
	SelectedRepo string
	// Notice explains where the list came from (fresh fetch, cached, or
	// stale after a failed refresh).
	Notice string
}

// DashboardPageData feeds dashboard.html.
type DashboardPageData struct {
	SelectedRepo string
	// Services are the compose services declared by the deployed
	// repository, empty until first deploy.
	Services []string
	LogTail  int
}
