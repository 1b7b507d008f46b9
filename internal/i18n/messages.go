package i18n

// Message keys shared by handlers, views and seed data.
const (
	MsgLoginSuccess      = "Login success."
	MsgInvalidLogin      = "Invalid username or password."
	MsgLoggedOut         = "Logged out."
	MsgUserCreated       = "User created."
	MsgUsernameTaken     = "Username already taken."
	MsgUsernameRequired  = "Username is required."
	MsgUsernameTooLong   = "Username is too long."
	MsgPasswordTooShort  = "Password must be at least 6 characters."
	MsgPasswordTooLong   = "Password must be at most 72 bytes."
	MsgEmptyBody         = "No content received."
	MsgItemCreated       = "+1"
	MsgItemUpdated       = "Item updated."
	MsgItemDeleted       = "Item deleted."
	MsgItemsCleared      = "Completed items cleared."
	MsgForbidden         = "Permission denied."
	MsgNotFound          = "The requested URL was not found on the server."
	MsgInvalidLocale     = "Invalid locale."
	MsgLocaleUpdated     = "Locale updated."
	MsgLoginRequired     = "Please log in to access this page."
	MsgInternalError     = "Internal server error."
	MsgMethodNotAllowed  = "The method is not allowed for the requested URL."
	MsgBadRequest        = "Bad request."
	MsgGrantTypeRequired = "The Grant type must be 'password'."
	MsgBadCredentials    = "username or password was invalid"
	MsgTokenMissing      = "Token missing."
	MsgTokenTypeInvalid  = "The Token type must be bearer."
	MsgTokenInvalid      = "Either the token was expired or invalid."

	SeedMajestic  = "Witness something truly majestic"
	SeedStranger  = "Help a complete stranger"
	SeedGreatWall = "Ride a bike on the Great Wall"
	SeedPyramids  = "Sit on the Great Pyramids"

	PageTitle      = "Todoism"
	PageSlogan     = "We are todoist, we use todoism"
	PageNext       = "What's next?"
	PageClear      = "Clear"
	PageAll        = "All"
	PageActive     = "Active"
	PageCompleted  = "Completed"
	PageLogin      = "Log in"
	PageLogout     = "Log out"
	PageUsername   = "Username"
	PagePassword   = "Password"
	PagePrev       = "Previous"
	PageNextPage   = "Next"
	PageGetStarted = "Get started"
	PageError      = "Error"
)

var zhMessages = map[string]string{
	MsgLoginSuccess:      "登陆成功",
	MsgInvalidLogin:      "用户或密码错误",
	MsgLoggedOut:         "用户已退出",
	MsgUserCreated:       "用户创建成功",
	MsgUsernameTaken:     "用户名已被占用",
	MsgUsernameRequired:  "用户名不能为空",
	MsgUsernameTooLong:   "用户名过长",
	MsgPasswordTooShort:  "密码至少需要6个字符",
	MsgPasswordTooLong:   "密码不能超过72字节",
	MsgEmptyBody:         "未获取到内容",
	MsgItemCreated:       "+1",
	MsgItemUpdated:       "更新成功",
	MsgItemDeleted:       "删除成功",
	MsgItemsCleared:      "已清理完成条目",
	MsgForbidden:         "权限错误",
	MsgNotFound:          "请求的地址不存在",
	MsgInvalidLocale:     "错误的区域",
	MsgLocaleUpdated:     "区域设置成功",
	MsgLoginRequired:     "登陆之后才能访问这个页面.",
	MsgInternalError:     "系统错误",
	MsgMethodNotAllowed:  "请求方法不被允许",
	MsgBadRequest:        "错误的请求",
	MsgGrantTypeRequired: "授权类型必须是 'password'.",
	MsgBadCredentials:    "用户名或密码无效",
	MsgTokenMissing:      "缺少令牌",
	MsgTokenTypeInvalid:  "令牌类型必须是 bearer.",
	MsgTokenInvalid:      "令牌已过期或无效.",

	SeedMajestic:  "去看真正的雄伟景色",
	SeedStranger:  "帮助一位完全陌生的人",
	SeedGreatWall: "在长城上骑自行车",
	SeedPyramids:  "坐在金字塔顶端",

	PageTitle:      "Todoism",
	PageSlogan:     "我们是有规划的人",
	PageNext:       "接下来计划干点啥",
	PageClear:      "清空",
	PageAll:        "全部",
	PageActive:     "未完成",
	PageCompleted:  "已完成",
	PageLogin:      "登录",
	PageLogout:     "退出",
	PageUsername:   "用户名",
	PagePassword:   "密码",
	PagePrev:       "上一页",
	PageNextPage:   "下一页",
	PageGetStarted: "开始使用",
	PageError:      "错误",
}
