package wechat

import "github.com/droidpilot/cli/internal/workflow"

// Screens returns the WeChat screen enumeration in detection priority
// order. Reference names resolve through the asset store, which may serve
// aliases and variants for each.
func Screens() *workflow.ScreenSet {
	return &workflow.ScreenSet{
		App:           "wechat",
		Package:       PackageID,
		HomeIndicator: "home_page",
		CancelButton:  "cancel_button",
		BackButton:    "back_button",
		HomeScreenAI:  "微信主界面，底部有微信、通讯录、发现、我四个标签",
		Screens: []workflow.Screen{
			{Name: workflow.ScreenHome, Primary: []string{"home_page"}, Fallback: []string{"wechat_tab"}},
			{Name: "contacts", Primary: []string{"contacts_page"}},
			{Name: "discover", Primary: []string{"discover_page"}},
			{Name: "me", Primary: []string{"me_page"}},
			{Name: "chat", Primary: []string{"chat_input"}, Fallback: []string{"chat_page"}},
			{Name: "moments", Primary: []string{"moments_page"}, Fallback: []string{"moments_camera"}},
			{Name: "search", Primary: []string{"search_page"}, Fallback: []string{"search_input"}},
			{Name: "moments_post", Primary: []string{"moments_input"}, Fallback: []string{"publish_button"}},
			{Name: "add_friend", Primary: []string{"add_friend_page"}},
			{Name: "profile", Primary: []string{"profile_page"}},
		},
	}
}

// Workflows returns the handler's declarative workflows, keyed by name.
func Workflows() map[string]*workflow.Workflow {
	return map[string]*workflow.Workflow{
		"send_message": {
			Name:              "send_message",
			Description:       "给联系人发送一条文字消息",
			ValidStartScreens: []string{workflow.ScreenHome},
			RequiredParams:    []string{"contact", "message"},
			EndScreen:         "chat",
			Steps: []workflow.Step{
				{
					Action:       workflow.ActionFindOrSearch,
					Target:       "{contact}",
					Params:       map[string]string{"searchWorkflow": "search_contact", "query": "{contact}"},
					Description:  "打开与{contact}的聊天",
					ExpectScreen: "chat",
				},
				{
					Action:      workflow.ActionInputText,
					Target:      "chat_input",
					Params:      map[string]string{"text": "{message}"},
					Description: "输入消息内容",
				},
				{
					Action:      workflow.ActionTap,
					Target:      "send_button",
					Description: "点击发送",
				},
			},
		},

		// The _local variants work from stored reference images alone: the
		// contact is tapped straight off the chat list and every checkpoint
		// is a template reference, so no model call is needed end to end.
		"send_message_local": {
			Name:              "send_message_local",
			Description:       "用本地参考图在会话列表直接点开联系人并发消息",
			ValidStartScreens: []string{workflow.ScreenHome},
			RequiredParams:    []string{"contact", "message"},
			EndScreen:         "chat",
			Steps: []workflow.Step{
				{
					Action:       workflow.ActionTap,
					Target:       "{contact}",
					Description:  "在会话列表点击{contact}",
					ExpectScreen: "chat",
				},
				{
					Action:      workflow.ActionInputText,
					Target:      "chat_input",
					Params:      map[string]string{"text": "{message}"},
					Description: "输入消息内容",
				},
				{
					Action:      workflow.ActionTap,
					Target:      "send_button",
					Description: "点击发送",
				},
			},
		},

		"search_contact": {
			Name:              "search_contact",
			Description:       "搜索联系人并进入聊天",
			ValidStartScreens: []string{workflow.ScreenHome, "chat"},
			RequiredParams:    []string{"query"},
			EndScreen:         "chat",
			Steps: []workflow.Step{
				{
					Action:       workflow.ActionTap,
					Target:       "search_button",
					Description:  "打开搜索",
					ExpectScreen: "search",
				},
				{
					Action:      workflow.ActionInputText,
					Target:      "search_input",
					Params:      map[string]string{"text": "{query}"},
					Description: "输入联系人名称",
				},
				{
					Action:      workflow.ActionWait,
					Params:      map[string]string{"duration": "800"},
					Description: "等待搜索结果",
				},
				{
					Action:      workflow.ActionTap,
					Target:      "first_search_result",
					Description: "选择第一个结果",
				},
			},
		},

		"post_moments": {
			Name:              "post_moments",
			Description:       "发一条纯文字朋友圈",
			ValidStartScreens: []string{workflow.ScreenHome},
			RequiredParams:    []string{"content"},
			OptionalParams:    map[string]string{"postAction": "long_press"},
			EndScreen:         "moments",
			Steps: []workflow.Step{
				{
					Action:       workflow.ActionTap,
					Target:       "discover_tab",
					Description:  "打开发现页",
					ExpectScreen: "discover",
				},
				{
					Action:       workflow.ActionTap,
					Target:       "moments_entry",
					Description:  "进入朋友圈",
					ExpectScreen: "moments",
				},
				{
					// Long press opens the text-only composer; a plain
					// tap would open the camera.
					Action:      workflow.ActionLongPress,
					Target:      "moments_camera",
					Description: "长按进入文字发表",
				},
				{
					Action:      workflow.ActionInputText,
					Target:      "moments_input",
					Params:      map[string]string{"text": "{content}"},
					Description: "输入朋友圈内容",
				},
				{
					Action:      workflow.ActionTap,
					Target:      "publish_button",
					Description: "发表",
				},
			},
		},

		"post_moments_only_text_local": {
			Name:              "post_moments_only_text_local",
			Description:       "只用本地参考图发一条文字朋友圈",
			ValidStartScreens: []string{workflow.ScreenHome},
			RequiredParams:    []string{"content"},
			EndScreen:         "moments",
			Steps: []workflow.Step{
				{
					Action:       workflow.ActionTap,
					Target:       "discover_tab",
					Description:  "打开发现页",
					ExpectScreen: "discover",
				},
				{
					Action:       workflow.ActionTap,
					Target:       "moments_entry",
					Description:  "进入朋友圈",
					ExpectScreen: "moments",
				},
				{
					Action:       workflow.ActionLongPress,
					Target:       "moments_camera",
					Description:  "长按进入文字发表",
					ExpectScreen: "moments_post",
				},
				{
					Action:      workflow.ActionInputText,
					Target:      "moments_input",
					Params:      map[string]string{"text": "{content}"},
					Description: "输入朋友圈内容",
					VerifyRef:   "publish_button",
				},
				{
					Action:      workflow.ActionTap,
					Target:      "publish_button",
					Description: "发表",
				},
			},
		},

		"message_and_moments": {
			Name:              "message_and_moments",
			Description:       "先给联系人发消息，再发一条朋友圈",
			ValidStartScreens: []string{workflow.ScreenHome},
			RequiredParams:    []string{"contact", "message", "content"},
			Steps: []workflow.Step{
				{
					Action: workflow.ActionSubWorkflow,
					Params: map[string]string{"name": "send_message", "contact": "{contact}", "message": "{message}"},
				},
				{Action: workflow.ActionNavToHome},
				{
					Action: workflow.ActionSubWorkflow,
					Params: map[string]string{"name": "post_moments", "content": "{content}"},
				},
			},
		},

		"add_friend": {
			Name:              "add_friend",
			Description:       "通过搜索添加好友",
			ValidStartScreens: []string{workflow.ScreenHome},
			RequiredParams:    []string{"query"},
			Steps: []workflow.Step{
				{Action: workflow.ActionTap, Target: "add_button", Description: "打开加号菜单"},
				{Action: workflow.ActionTap, Target: "add_friend_option", Description: "选择添加朋友"},
				{
					Action: workflow.ActionInputText,
					Target: "search_input",
					Params: map[string]string{"text": "{query}"},
				},
				{Action: workflow.ActionPressKey, Params: map[string]string{"key": "enter"}},
				{
					Action:      workflow.ActionConditional,
					Target:      "add_to_contacts_button",
					Description: "如果出现添加按钮则点击",
				},
			},
		},

		"view_moments": {
			Name:              "view_moments",
			Description:       "打开朋友圈浏览",
			ValidStartScreens: []string{workflow.ScreenHome},
			EndScreen:         "moments",
			Steps: []workflow.Step{
				{
					Action:       workflow.ActionTap,
					Target:       "discover_tab",
					ExpectScreen: "discover",
				},
				{
					Action:       workflow.ActionTap,
					Target:       "moments_entry",
					ExpectScreen: "moments",
				},
			},
		},

		"open_chat": {
			Name:              "open_chat",
			Description:       "打开与联系人的聊天窗口",
			ValidStartScreens: []string{workflow.ScreenHome},
			RequiredParams:    []string{"contact"},
			EndScreen:         "chat",
			Steps: []workflow.Step{
				{
					Action:       workflow.ActionFindOrSearch,
					Target:       "{contact}",
					Params:       map[string]string{"searchWorkflow": "search_contact", "query": "{contact}"},
					ExpectScreen: "chat",
				},
			},
		},
	}
}
