// Copyright (c) LanMirror Authors.
// Licensed under the MIT License.

/*
包 router 将 HTTP 请求映射到暂存目录中的文件。

# 路由规则

  - 空路径或 "/" 映射到入口文件
  - 包含 ".." 段的路径直接返回 403，不访问文件系统
  - 存在的普通文件按扩展名返回 Content-Type
  - 不存在的路径回退到入口文件（单页应用路由）
  - 入口文件也不存在时返回 404
  - 意外错误与 panic 返回 500 并记录日志

除 403 外的所有响应都携带宽松的 CORS 头，OPTIONS 预检请求返回 204。
*/
package router
