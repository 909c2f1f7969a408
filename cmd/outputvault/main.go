// Package main 启动应用程序
package main

import "github.com/yeisme/outputvault/pkg/cmd"

//	@title			OutputVault API
//	@version		1.0
//	@description	OutputVault 管理制作环节产出的版本化文件，追踪输出文件、工作文件及其衍生媒体的生成与渲染状态。

//	@license.name	MIT
//	@license.url	https://opensource.org/license/mit/

//	@contact.name	yeisme
//	@contact.email	yefun2004@gmail.com.

func main() {
	if err := cmd.Execute(); err != nil {
		panic(err)
	}
}
