package instagram

// DOM selectors for the site's web UI. They track the markup the crawler was
// last verified against and are the first thing to update when the UI moves.
const (
	SelectorAcceptCookies = "button[tabindex='0']._a9--._a9_0"

	// transient failure markers checked after each page load
	SelectorReloadButton = "#reload-button"
	SelectorErrorPage    = "body.p-error"

	// listings
	SelectorPostLinks      = "article a[href*='/p/']"
	SelectorShowMore       = "div._ac7b > a, button._acan._acap"
	SelectorScrollLoad     = "svg[aria-label='Loading...']"
	SelectorTopPostsBox    = "article > div:nth-of-type(1)"
	SelectorRecentPostsBox = "article > div:nth-of-type(2)"

	// profile
	SelectorUserPrivate       = "article h2._aa_u"
	SelectorDisplayPicPublic  = "header img._aadp"
	SelectorDisplayPicPrivate = "header img._aa8j"

	// post page
	SelectorPageUsername = "header a[role='link']"
	SelectorPostTime     = "time[datetime]"
	SelectorPostBox      = "article div._aagv"
	SelectorNextControl  = "button[aria-label='Next']"
	SelectorIndicator    = "div._acnb"
	SelectorCarouselList = "article ul._acay"
	SelectorCarouselItem = "li._acaz"
	SelectorImage        = "img"
	SelectorVideo        = "video"
	SelectorVideoSource  = "video source"

	// stories
	SelectorStoriesBar  = "div._ac3n > div"
	SelectorStoriesView = "div._ac0k button"
	SelectorStoriesNext = "button[aria-label='Next']"
	SelectorStoryVideo  = "div._ac0l video source"
	SelectorStoryImage  = "div._ac0l img._aa63"

	// session
	SelectorUsernameInput       = "form input[name='username']"
	SelectorPasswordInput       = "form input[name='password']"
	SelectorLoginButton         = "form button[type='submit']"
	SelectorSecurityCode        = "input[name='verificationCode']"
	SelectorSecurityConfirm     = "form button[type='button']"
	SelectorFailedLogin         = "#slfErrorAlert"
	SelectorSaveLoginNotNow     = "div[role='button']._ac8f"
	SelectorNotificationsNotNow = "button._a9--._a9_1"
	SelectorSettings            = "svg[aria-label='Options']"
	SelectorLogoutButton        = "div[role='dialog'] button:last-of-type"
)
