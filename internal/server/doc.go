// Copyright (c) LanMirror Authors.
// Licensed under the MIT License.

/*
包 server 提供 HTTP 服务器生命周期管理。

# 概述

Manager 封装 net/http.Server，既可以自行监听 Config.Addr（控制面
服务器），也可以在外部绑定好的 net.Listener 上服务（镜像服务器，
端口冲突重试由调用方完成）。

# 主要能力

  - 非阻塞启动：Start/Serve 在后台 goroutine 中运行
  - 强制关闭：Close 立即断开所有连接
  - 优雅关闭：Shutdown 在配置的超时内排空请求
  - 错误传播：Errors() 返回异步错误通道
  - 状态查询：IsRunning/Addr
*/
package server
